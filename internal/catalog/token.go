package catalog

// Token is one run of a call template: either an identifier or the
// literal text between identifiers.
type Token struct {
	Text  string
	Ident bool
}

// Tokenize splits a call template into identifier and literal runs.
// Identifiers follow C rules: a letter or underscore, then letters,
// digits or underscores. Quoted strings and numbers with suffixes
// ("0x1F", "10ms") are literal. Concatenating all token texts yields
// the input.
func Tokenize(template string) []Token {
	tokens := make([]Token, 0, 8)
	i := 0
	for i < len(template) {
		start := i
		if isIdentStart(template[i]) {
			for i < len(template) && isIdentPart(template[i]) {
				i++
			}
			tokens = append(tokens, Token{Text: template[start:i], Ident: true})
			continue
		}
		for i < len(template) && !isIdentStart(template[i]) {
			switch c := template[i]; {
			case c == '"' || c == '\'':
				i = skipQuoted(template, i)
			case isDigit(c):
				for i < len(template) && isIdentPart(template[i]) {
					i++
				}
			default:
				i++
			}
		}
		tokens = append(tokens, Token{Text: template[start:i]})
	}
	return tokens
}

// skipQuoted returns the index just past the string literal opening at i.
// An unterminated literal runs to the end of the template.
func skipQuoted(s string, i int) int {
	quote := s[i]
	i++
	for i < len(s) {
		switch s[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		}
		i++
	}
	return len(s)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
