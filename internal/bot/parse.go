package bot

import (
	"strings"

	"city_bot/internal/catalog"
	"city_bot/internal/model"
)

const dateStatePrefix = "await_date"

// ParseCategoryArg returns the lower-cased first argument, or catalog.Any
// when none is given.
func ParseCategoryArg(args string) string {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return catalog.Any
	}
	return catalog.Lower(fields[0])
}

// ParseDateArgs splits "[category] [DD.MM.YYYY]" arguments. A single
// argument is taken as a date when it contains a dot.
func ParseDateArgs(args string) (category, date string) {
	fields := strings.Fields(args)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		if strings.Contains(fields[0], ".") {
			return "", fields[0]
		}
		return catalog.Lower(fields[0]), ""
	default:
		return catalog.Lower(fields[0]), fields[1]
	}
}

// DateState encodes a pending date prompt as a chat state.
func DateState(d model.Domain, category string) string {
	return dateStatePrefix + ":" + string(d) + ":" + category
}

// ParseDateState decodes a chat state written by DateState.
func ParseDateState(state string) (model.Domain, string, bool) {
	parts := strings.SplitN(state, ":", 3)
	if len(parts) != 3 || parts[0] != dateStatePrefix || parts[2] == "" {
		return "", "", false
	}
	switch d := model.Domain(parts[1]); d {
	case model.DomainNews, model.DomainEvents:
		return d, parts[2], true
	default:
		return "", "", false
	}
}

// ParseCallbackData splits "action:argument" callback payloads.
func ParseCallbackData(data string) (action, arg string, ok bool) {
	action, arg, ok = strings.Cut(data, ":")
	if !ok || action == "" || arg == "" {
		return "", "", false
	}
	return action, arg, true
}
