package scripting

// Typed Lua is Lua 5.1 plus optional annotations:
//
//	function move(speed: number, dir: Vec3?): boolean
//	local hp: number = 100
//	type Vec3 = { x: number, y: number, z: number }
//
// lowerTypes blanks the annotations with spaces so the result is plain Lua
// with every remaining token on its original line and column.

type tokKind int

const (
	tokSpace tokKind = iota // whitespace and comments
	tokName
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind       tokKind
	start, end int
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// longBracket reports the level of a long bracket opening at i ("[[", "[=[", ...)
// or -1.
func longBracket(src string, i int) int {
	if i >= len(src) || src[i] != '[' {
		return -1
	}
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j < len(src) && src[j] == '[' {
		return j - i - 1
	}
	return -1
}

// skipLong returns the index just past the long bracket closing at the given level.
func skipLong(src string, i, level int) int {
	i += level + 2
	for i < len(src) {
		if src[i] == ']' {
			j := i + 1
			for j < len(src) && src[j] == '=' {
				j++
			}
			if j < len(src) && src[j] == ']' && j-i-1 == level {
				return j + 1
			}
		}
		i++
	}
	return len(src)
}

func tokenize(src string) []token {
	toks := make([]token, 0, len(src)/3)
	i := 0
	for i < len(src) {
		c := src[i]
		start := i
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\r' || src[i] == '\n') {
				i++
			}
			toks = append(toks, token{tokSpace, start, i})
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			if lvl := longBracket(src, i+2); lvl >= 0 {
				i = skipLong(src, i+2, lvl)
			} else {
				for i < len(src) && src[i] != '\n' {
					i++
				}
			}
			toks = append(toks, token{tokSpace, start, i})
		case isNameStart(c):
			for i < len(src) && isNameChar(src[i]) {
				i++
			}
			toks = append(toks, token{tokName, start, i})
		case c >= '0' && c <= '9':
			for i < len(src) && (isNameChar(src[i]) || src[i] == '.' ||
				((src[i] == '+' || src[i] == '-') && (src[i-1] == 'e' || src[i-1] == 'E'))) {
				i++
			}
			toks = append(toks, token{tokNumber, start, i})
		case c == '"' || c == '\'':
			i++
			for i < len(src) && src[i] != c && src[i] != '\n' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i < len(src) {
				i++
			}
			toks = append(toks, token{tokString, start, min(i, len(src))})
		case c == '[' && longBracket(src, i) >= 0:
			i = skipLong(src, i, longBracket(src, i))
			toks = append(toks, token{tokString, start, i})
		default:
			i++
			toks = append(toks, token{tokSymbol, start, i})
		}
	}
	return toks
}

type lowerer struct {
	src  string
	toks []token
	out  []byte
}

func lowerTypes(src string) string {
	l := &lowerer{src: src, toks: tokenize(src), out: []byte(src)}
	l.run()
	return string(l.out)
}

func (l *lowerer) text(i int) string {
	if i < 0 || i >= len(l.toks) {
		return ""
	}
	t := l.toks[i]
	return l.src[t.start:t.end]
}

func (l *lowerer) is(i int, s string) bool {
	return i < len(l.toks) && l.toks[i].kind != tokSpace && l.text(i) == s
}

// next returns the index of the first non-space token at or after i.
func (l *lowerer) next(i int) int {
	for i < len(l.toks) && l.toks[i].kind == tokSpace {
		i++
	}
	return i
}

// blank erases tokens [from, to) keeping newlines.
func (l *lowerer) blank(from, to int) {
	if from >= len(l.toks) || to <= from {
		return
	}
	end := l.toks[to-1].end
	for p := l.toks[from].start; p < end; p++ {
		if l.out[p] != '\n' && l.out[p] != '\r' {
			l.out[p] = ' '
		}
	}
}

func (l *lowerer) run() {
	for i := 0; i < len(l.toks); i++ {
		t := l.toks[i]
		if t.kind != tokName {
			continue
		}
		switch l.text(i) {
		case "function":
			i = l.function(i)
		case "local":
			j := l.next(i + 1)
			if l.is(j, "function") {
				continue
			}
			i = l.locals(j) - 1
		case "type", "export":
			if !l.statementStart(i) {
				continue
			}
			if end, ok := l.typeAlias(i); ok {
				l.blank(i, end)
				i = end - 1
			}
		}
	}
}

// statementStart reports whether token i can begin a statement, judged by the
// token before it.
func (l *lowerer) statementStart(i int) bool {
	p := i - 1
	for p >= 0 && l.toks[p].kind == tokSpace {
		p--
	}
	if p < 0 {
		return true
	}
	switch l.toks[p].kind {
	case tokName:
		switch l.text(p) {
		case "local", "return", "and", "or", "not", "in", "until", "while",
			"if", "elseif", "for", "function":
			return false
		}
		return true
	case tokSymbol:
		switch l.text(p) {
		case ")", "]", "}", ";":
			return true
		}
		return false
	}
	return true
}

// function handles `function name<T>(params): Ret` starting at the keyword and
// returns the index of the last token consumed.
func (l *lowerer) function(i int) int {
	j := l.next(i + 1)
	for j < len(l.toks) && !l.is(j, "(") && !l.is(j, "<") {
		k := l.toks[j].kind
		if k != tokName && !l.is(j, ".") && !l.is(j, ":") {
			return j - 1
		}
		j = l.next(j + 1)
	}
	if l.is(j, "<") {
		end, ok := l.balanced(j, "<", ">")
		if !ok {
			return j
		}
		l.blank(j, end)
		j = l.next(end)
	}
	if !l.is(j, "(") {
		return j - 1
	}
	depth := 0
	k := j
	for ; k < len(l.toks); k++ {
		if l.toks[k].kind == tokSpace {
			continue
		}
		switch l.text(k) {
		case "(":
			depth++
		case ")":
			depth--
		case ":":
			if depth == 1 {
				if end, ok := l.parseType(l.next(k + 1)); ok {
					l.blank(k, end)
					k = end - 1
				}
			}
		}
		if depth == 0 {
			break
		}
	}
	if k >= len(l.toks) {
		return k
	}
	r := l.next(k + 1)
	if l.is(r, ":") {
		if end, ok := l.parseType(l.next(r + 1)); ok {
			l.blank(r, end)
			return end - 1
		}
	}
	return k
}

// locals handles the name list of a local statement beginning at i and returns
// the index of the first token after it.
func (l *lowerer) locals(i int) int {
	for i < len(l.toks) && l.toks[i].kind == tokName {
		j := l.next(i + 1)
		if l.is(j, ":") {
			end, ok := l.parseType(l.next(j + 1))
			if !ok {
				return j
			}
			l.blank(j, end)
			j = l.next(end)
		}
		if !l.is(j, ",") {
			return j
		}
		i = l.next(j + 1)
	}
	return i
}

// typeAlias matches `[export] type Name[<T>] = Type`.
func (l *lowerer) typeAlias(i int) (int, bool) {
	if l.text(i) == "export" {
		i = l.next(i + 1)
		if !l.is(i, "type") {
			return 0, false
		}
	}
	name := l.next(i + 1)
	if name >= len(l.toks) || l.toks[name].kind != tokName {
		return 0, false
	}
	j := l.next(name + 1)
	if l.is(j, "<") {
		end, ok := l.balanced(j, "<", ">")
		if !ok {
			return 0, false
		}
		j = l.next(end)
	}
	if !l.is(j, "=") || l.is(j+1, "=") {
		return 0, false
	}
	return l.parseType(l.next(j + 1))
}

// parseType consumes a type expression starting at i and returns the index
// just past it.
func (l *lowerer) parseType(i int) (int, bool) {
	end, ok := l.primaryType(i)
	if !ok {
		return 0, false
	}
	for {
		j := l.next(end)
		if !l.is(j, "|") && !l.is(j, "&") {
			return end, true
		}
		e, ok := l.primaryType(l.next(j + 1))
		if !ok {
			return end, true
		}
		end = e
	}
}

func (l *lowerer) primaryType(i int) (int, bool) {
	if i >= len(l.toks) {
		return 0, false
	}
	var end int
	switch {
	case l.toks[i].kind == tokName:
		end = i + 1
		for l.is(end, ".") && end+1 < len(l.toks) && l.toks[end+1].kind == tokName {
			end += 2
		}
		if l.is(end, "<") {
			e, ok := l.balanced(end, "<", ">")
			if !ok {
				return 0, false
			}
			end = e
		}
	case l.toks[i].kind == tokString:
		end = i + 1
	case l.is(i, "{"):
		e, ok := l.balanced(i, "{", "}")
		if !ok {
			return 0, false
		}
		end = e
	case l.is(i, "("):
		e, ok := l.balanced(i, "(", ")")
		if !ok {
			return 0, false
		}
		end = e
		j := l.next(end)
		if l.is(j, "-") && l.is(j+1, ">") {
			ret, ok := l.parseType(l.next(j + 2))
			if !ok {
				return 0, false
			}
			end = ret
		}
	default:
		return 0, false
	}
	for {
		switch {
		case l.is(end, "?"):
			end++
		case l.is(end, "[") && l.is(end+1, "]"):
			end += 2
		default:
			return end, true
		}
	}
}

// balanced returns the index just past the token closing the bracket opened at i.
func (l *lowerer) balanced(i int, open, close string) (int, bool) {
	depth := 0
	for k := i; k < len(l.toks); k++ {
		if l.toks[k].kind == tokSpace {
			continue
		}
		switch l.text(k) {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return k + 1, true
			}
		}
	}
	return 0, false
}
