package cron

import (
	"sort"
	"strings"
)

const generatedBy = "# Generated by cronsmith. Local changes will be overwritten."

// renderCronDFile renders the full content of a cron.d file for one entry.
// Output is byte-stable: environment keys are emitted sorted.
func renderCronDFile(e Entry) string {
	var b strings.Builder
	b.WriteString(generatedBy)
	b.WriteString("\n")
	writeEnvLines(&b, e)
	b.WriteString(e.Schedule.String())
	b.WriteString(" ")
	b.WriteString(e.User)
	b.WriteString(" ")
	b.WriteString(e.Command)
	b.WriteString("\n")
	return b.String()
}

// blockBegin/blockEnd delimit a managed block inside a per-user crontab.
func blockBegin(name string) string { return "# cronsmith: begin " + name }
func blockEnd(name string) string   { return "# cronsmith: end " + name }

// renderCrontabBlock renders the managed block for the legacy backend.
// MAILTO/environment lines live inside the block; note that in a per-user
// crontab they apply to all subsequent lines until redefined.
func renderCrontabBlock(e Entry) string {
	var b strings.Builder
	b.WriteString(blockBegin(e.Name))
	b.WriteString("\n")
	writeEnvLines(&b, e)
	b.WriteString(e.Schedule.String())
	b.WriteString(" ")
	b.WriteString(e.Command)
	b.WriteString("\n")
	b.WriteString(blockEnd(e.Name))
	b.WriteString("\n")
	return b.String()
}

func writeEnvLines(b *strings.Builder, e Entry) {
	if e.MailTo != "" {
		b.WriteString("MAILTO=")
		b.WriteString(e.MailTo)
		b.WriteString("\n")
	}
	keys := make([]string, 0, len(e.Environment))
	for k := range e.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(e.Environment[k])
		b.WriteString("\n")
	}
}

// replaceBlock returns crontab content with the named managed block replaced
// (or appended). Content outside managed blocks is preserved untouched.
func replaceBlock(current, name, block string) string {
	stripped := removeBlock(current, name)
	if stripped != "" && !strings.HasSuffix(stripped, "\n") {
		stripped += "\n"
	}
	return stripped + block
}

// removeBlock returns crontab content with the named managed block removed.
func removeBlock(current, name string) string {
	if current == "" {
		return ""
	}
	begin := blockBegin(name)
	end := blockEnd(name)

	var out []string
	skipping := false
	for _, line := range strings.Split(current, "\n") {
		switch {
		case strings.TrimSpace(line) == begin:
			skipping = true
		case strings.TrimSpace(line) == end:
			skipping = false
		case !skipping:
			out = append(out, line)
		}
	}
	s := strings.Join(out, "\n")
	// collapse the trailing blank run a removed block tends to leave
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}
	return s + "\n"
}

// sanitizeName maps a job name to a safe cron.d file name. Cron skips files
// containing dots, so anything outside [A-Za-z0-9_-] becomes an underscore.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
