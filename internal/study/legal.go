package study

// LegalNotice is shown on the legal information screen.
const LegalNotice = `Study App stores subjects, generated questions and quiz attempts in a
local database file on this device. Nothing is uploaded except the module
text sent to the configured language model provider when questions are
generated, and the messages you type into the chat screen.

Generated questions may contain mistakes. Check important facts against
the study material.

Backups are raw copies of the local database. Keep them private; restoring
a backup replaces every subject, question and attempt on this device.`
