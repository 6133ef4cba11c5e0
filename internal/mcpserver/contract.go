package mcpserver

// VaultConventions describes the note layout the vault tools read and write.
const VaultConventions = `# Vault Conventions

## Daily notes

Daily notes live at ` + "`" + `dailies/YYYY-MM-DD.md` + "`" + ` and are never created by ` + "`" + `create_note` + "`" + `.
Dates may be given as ` + "`" + `today` + "`" + `, ` + "`" + `yesterday` + "`" + ` or ` + "`" + `YYYY-MM-DD` + "`" + `.

Each daily note carries a task list under a header containing "Short List":

` + "```" + `markdown
### Short List
- [ ] Call MetEd
- [ ] 

### Notes
` + "```" + `

- ` + "`" + `add_task_to_daily` + "`" + ` fills the first empty ` + "`" + `- [ ]` + "`" + ` placeholder, or appends after the last task.
- The list ends at the first blank or non-task line. A ` + "`" + `####` + "`" + ` header inside the list is an error.
- A Short List header with no task lines under it is an error; keep at least one placeholder.

## Tasks

| Marker | Status     |
|--------|------------|
| ` + "`" + `[ ]` + "`" + `  | Open       |
| ` + "`" + `[x]` + "`" + `  | Completed  |
| ` + "`" + `[/]` + "`" + `  | InProgress |
| ` + "`" + `[>]` + "`" + `  | Forwarded  |
| ` + "`" + `[<]` + "`" + `  | Scheduled  |

` + "`" + `mark_task` + "`" + ` matches the task text followed by whitespace or end of line:
"Call MetEd" matches "- [ ] Call MetEd later", while "Call Met" does not match "- [ ] Call MetEd". Status names are case-sensitive.

## Notes

- ` + "`" + `create_note` + "`" + ` writes ` + "`" + `<folder>/<title>.md` + "`" + ` and fails if the file exists.
- Tags are rendered as one line (` + "`" + `#snippet #sql` + "`" + `) followed by a blank line, then the content.
- All paths are vault-relative with forward slashes; paths outside the vault are rejected.
`
