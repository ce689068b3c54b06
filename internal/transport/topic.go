// Package transport implements the publish/subscribe adapter: topic
// templating, connect/subscribe/publish/disconnect over MQTT, and automatic
// reconnect with resubscription.
package transport

import (
	"regexp"
	"strings"
)

var placeholderRE = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// FormatTopic substitutes named placeholders in a topic template
// (e.g. "scenescape/data/camera/{camera_id}") with the given bindings.
// Unbound placeholders are left verbatim.
func FormatTopic(template string, bindings map[string]string) string {
	return placeholderRE.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := bindings[name]; ok {
			return v
		}
		return match
	})
}

// ParseTopic matches a concrete topic against a template and returns the
// placeholder bindings, or ok=false if the topic does not match the
// template's shape. Segments are matched by MQTT '/'-delimited level, so a
// placeholder never spans a '/'.
func ParseTopic(template, topic string) (map[string]string, bool) {
	tmplParts := strings.Split(template, "/")
	topicParts := strings.Split(topic, "/")
	if len(tmplParts) != len(topicParts) {
		return nil, false
	}
	bindings := make(map[string]string, len(tmplParts))
	for i, part := range tmplParts {
		if m := placeholderRE.FindStringSubmatch(part); m != nil && m[0] == part {
			bindings[m[1]] = topicParts[i]
			continue
		}
		if part != topicParts[i] {
			return nil, false
		}
	}
	return bindings, true
}

// SubscriptionFilter converts a topic template into an MQTT subscription
// filter, replacing every placeholder with a single-level wildcard '+' that
// matches any single placeholder value on subscribe.
func SubscriptionFilter(template string) string {
	return placeholderRE.ReplaceAllString(template, "+")
}
