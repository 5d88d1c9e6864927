package mcpserver

// NoteFormat describes how memosync derives display fields from a note body.
const NoteFormat = `# memosync note format

A note is free text identified by a slug such as memo-20240101-093000. The slug is
assigned when the note is created and never changes.

## Title and preview

- If the body starts with a YAML frontmatter block (between --- lines) that has a
  ` + "`title`" + ` field, that is the title and the first content line is the preview.
- Otherwise the first non-empty line is the title, with any leading # characters
  stripped, and the next non-empty line is the preview.
- An empty body is shown under its slug.

## Tags

Frontmatter ` + "`tags`" + ` (a YAML list) and inline #tags in the body.

## Sync

Edits are saved locally at once and pushed to the remote repository as <slug>.md
(or the path the note was found at) after a short pause. Pulling replaces local
bodies with remote ones, except when the remote copy is empty.
`
