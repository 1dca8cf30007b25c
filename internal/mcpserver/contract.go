package mcpserver

// ImportFormatContract describes the word-list format accepted by the
// import_words and import_url tools.
const ImportFormatContract = `# WordMaster Import Format

A word list is plain UTF-8 text with one entry per line:

` + "```" + `
term;definition
` + "```" + `

## Rules

1. Lines are separated by newlines. Windows line endings are accepted.
2. Each line is split on the **first** delimiter (` + "`" + `;` + "`" + ` unless configured otherwise).
   Everything after it is the definition, so definitions may contain the delimiter.
3. Term and definition are trimmed. Lines that are blank, have no delimiter,
   or have an empty term or definition are skipped.
4. Importing **replaces** the whole collection. Every imported word starts as
   ` + "`" + `unknown` + "`" + `. Previous familiarity marks are lost.
5. If no line yields a word, nothing changes and the tool reports an error.

## Example

` + "```" + `
apple;苹果
cat;猫
foo;bar;baz
` + "```" + `

imports three words; the third has term ` + "`" + `foo` + "`" + ` and definition ` + "`" + `bar;baz` + "`" + `.
`
