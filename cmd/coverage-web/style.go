package main

import (
	"html/template"
	"regexp"
	"strings"
)

var (
	cssProperty = regexp.MustCompile(`^-?[a-z][a-z0-9-]*$`)
	cssValue    = regexp.MustCompile(`^[a-zA-Z0-9 #%.,'"()+\-/!]+$`)
)

// Fragments that can load resources or run script from inside a value.
var cssBanned = []string{"url(", "expression(", "image(", "image-set(", "element(", "javascript:", "/*", "*/"}

// containerStyle rebuilds a user-supplied inline style from the declarations
// that pass validation. Invalid declarations are dropped.
func containerStyle(raw string) template.CSS {
	var decls []string
	for _, decl := range strings.Split(raw, ";") {
		prop, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		value = strings.TrimSpace(value)
		if !cssProperty.MatchString(prop) || !validCSSValue(value) {
			continue
		}
		decls = append(decls, prop+": "+value)
	}
	return template.CSS(strings.Join(decls, "; "))
}

func validCSSValue(v string) bool {
	if !cssValue.MatchString(v) {
		return false
	}
	lower := strings.ToLower(v)
	for _, b := range cssBanned {
		if strings.Contains(lower, b) {
			return false
		}
	}
	if strings.Count(v, "'")%2 != 0 || strings.Count(v, `"`)%2 != 0 {
		return false
	}
	depth := 0
	for _, c := range v {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}
