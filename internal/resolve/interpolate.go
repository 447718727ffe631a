package resolve

import (
	"regexp"
	"strings"
)

// varPattern matches $NAME and ${NAME}. The braces are matched independently.
var varPattern = regexp.MustCompile(`\$\{?(\w+)\}?`)

// Substitute replaces every $NAME and ${NAME} in text with the value of NAME
// in vars, or with nothing when NAME is unset. Substituted values are not
// scanned again.
func Substitute(text string, vars map[string]string) string {
	matches := varPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[0]])
		b.WriteString(vars[text[m[2]:m[3]]])
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// SubstituteAll applies Substitute to every value of kvs.
func SubstituteAll(kvs, vars map[string]string) map[string]string {
	out := make(map[string]string, len(kvs))
	for k, v := range kvs {
		out[k] = Substitute(v, vars)
	}
	return out
}

// EnvironMap turns KEY=value pairs, as returned by os.Environ, into a map.
// Later duplicates win.
func EnvironMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
