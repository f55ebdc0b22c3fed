package config

import (
	"fmt"
	"strings"
)

// splitKey separates a dotted option key into its TOML table and the key
// inside that table.
func splitKey(key string) (section, name string) {
	i := strings.LastIndex(key, ".")
	if i < 0 {
		return "", key
	}
	return key[:i], key[i+1:]
}

// groupOptions groups options by table, preserving first-seen order. The
// top-level table is always first.
func groupOptions(opts []ConfigOption) ([]string, map[string][]ConfigOption) {
	order := []string{""}
	groups := map[string][]ConfigOption{"": nil}
	for _, o := range opts {
		section, name := splitKey(o.Key)
		if _, ok := groups[section]; !ok {
			order = append(order, section)
		}
		groups[section] = append(groups[section], ConfigOption{Key: name, Default: o.Default, Comment: o.Comment})
	}
	return order, groups
}

// RenderDefaultTOML renders a TOML config with defaults from GetConfigOptions.
func RenderDefaultTOML() string {
	var lines []string
	lines = append(lines, "# binderctl configuration (TOML)", "")
	order, groups := groupOptions(GetConfigOptions())
	for _, section := range order {
		opts := groups[section]
		if len(opts) == 0 {
			continue
		}
		if section != "" {
			lines = append(lines, "["+section+"]")
		}
		for _, o := range opts {
			writeTOMLOptionLines(&lines, o.Key, o.Default, o.Comment)
		}
	}
	return strings.Join(lines, "\n")
}

// UpdateTOML merges defaults into an existing TOML string and comments out
// unknown keys. Missing keys are added to their table when the file already
// has it, otherwise a new table is appended.
func UpdateTOML(existing string) (string, bool) {
	lines := strings.Split(existing, "\n")
	known := make(map[string]bool)
	for _, o := range GetConfigOptions() {
		known[o.Key] = true
	}

	// First pass: comment out unknown keys, note which keys and tables exist
	// and where each table ends.
	present := make(map[string]bool)
	tableEnd := map[string]int{}
	current := ""
	kept := make([]string, 0, len(lines))
	changed := false
	for _, line := range lines {
		trim := strings.TrimSpace(line)
		switch {
		case trim == "" || strings.HasPrefix(trim, "#") || strings.HasPrefix(trim, ";"):
		case isSectionHeader(trim):
			current = strings.TrimSpace(trim[1 : len(trim)-1])
		default:
			if key, ok := parseTOMLKey(line); ok {
				full := key
				if current != "" {
					full = current + "." + key
				}
				if !known[full] {
					indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
					kept = append(kept, indent+"# OUTDATED: option removed from config schema")
					kept = append(kept, indent+"# "+strings.TrimLeft(line, " \t"))
					changed = true
					tableEnd[current] = len(kept)
					continue
				}
				present[full] = true
			}
		}
		kept = append(kept, line)
		if trim != "" {
			tableEnd[current] = len(kept)
		}
	}

	var missing []ConfigOption
	for _, o := range GetConfigOptions() {
		if !present[o.Key] {
			missing = append(missing, o)
		}
	}
	if len(missing) == 0 {
		return strings.Join(kept, "\n"), changed
	}

	order, groups := groupOptions(missing)
	inserts := make(map[int][]string)
	var appended []string
	for _, section := range order {
		opts := groups[section]
		if len(opts) == 0 {
			continue
		}
		var block []string
		for _, o := range opts {
			writeTOMLOptionLines(&block, o.Key, o.Default, o.Comment)
		}
		at, ok := tableEnd[section]
		switch {
		case ok:
			inserts[at] = append(inserts[at], block...)
		case section == "":
			inserts[0] = append(inserts[0], block...)
		default:
			appended = append(appended, "["+section+"]")
			appended = append(appended, block...)
		}
	}

	out := make([]string, 0, len(kept)+len(appended)+len(missing)*3)
	for i := 0; i <= len(kept); i++ {
		if block, ok := inserts[i]; ok {
			out = append(out, block...)
		}
		if i < len(kept) {
			out = append(out, kept[i])
		}
	}
	if len(appended) > 0 {
		out = append(out, "", "# Added by config update")
		out = append(out, appended...)
	}
	return strings.Join(out, "\n"), true
}

func isSectionHeader(trim string) bool {
	return strings.HasPrefix(trim, "[") && strings.HasSuffix(trim, "]")
}

func parseTOMLKey(line string) (string, bool) {
	idx := strings.Index(line, "=")
	if idx == -1 {
		return "", false
	}
	key := strings.TrimSpace(line[:idx])
	if key == "" || strings.HasPrefix(key, "[") {
		return "", false
	}
	if strings.HasPrefix(key, "\"") || strings.HasPrefix(key, "'") {
		return "", false
	}
	return key, true
}

func writeTOMLOptionLines(lines *[]string, key string, value any, comment string) {
	if comment != "" {
		*lines = append(*lines, "# "+comment)
	}
	switch v := value.(type) {
	case string:
		*lines = append(*lines, fmt.Sprintf("%s = %q", key, v), "")
	case bool, int, int64, float64:
		*lines = append(*lines, fmt.Sprintf("%s = %v", key, v), "")
	case []string:
		quoted := make([]string, len(v))
		for i, s := range v {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		*lines = append(*lines, fmt.Sprintf("%s = [%s]", key, strings.Join(quoted, ", ")), "")
	}
}
