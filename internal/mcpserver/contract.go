package mcpserver

// RecordFormatContract describes how decision records are named, laid out
// and referenced. It is served as the adrlens://record-format resource.
const RecordFormatContract = `# adrlens Record Format

Architecture decision records (ADRs) are Markdown files in the vault.

## File names

` + "`" + `<prefix><Title_With_Underscores>_<YYYYMMDD>.md` + "`" + `

- The prefix comes from the configuration (default ` + "`" + `adr_` + "`" + `). It may only contain
  letters, digits, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `, at most 20 characters.
- Titles are 1 to 100 characters of letters, digits, spaces, ` + "`" + `-` + "`" + ` and ` + "`" + `_` + "`" + `.
  Runs of whitespace collapse to one space, then spaces become underscores.
- Records live in the configured record directory (default ` + "`" + `adr/` + "`" + `) below the
  directory you choose. Use the ` + "`" + `create_record` + "`" + ` tool rather than writing files.

## Layout

The first level-one heading is the title. The status is read from YAML
frontmatter (` + "`" + `status:` + "`" + `) or from a bullet of the form:

` + "```" + `markdown
# Use SQLite for the index

* **Status** : Accepted
` + "```" + `

French templates use ` + "`" + `**Statut**` + "`" + `. Tags come from frontmatter only.

## References

Any Markdown file may mention a record by a fragment of its file name that
starts with the prefix and ends with ` + "`" + `.md` + "`" + `, on a single line:

` + "```" + `markdown
Caching follows adr_cache_scans_20240101.md.
` + "```" + `

A reference resolves to the first record whose path contains the reference
text. Matching is case-sensitive on the text, the scan stops at 1000
references per file, and references longer than 200 characters never
resolve.
`
