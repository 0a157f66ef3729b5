package platform

import (
	"strings"
)

// Conventional commit types accepted by the CLI.
const (
	CommitTypeFeat     = "feat"
	CommitTypeFix      = "fix"
	CommitTypeDocs     = "docs"
	CommitTypeStyle    = "style"
	CommitTypeRefactor = "refactor"
	CommitTypePerf     = "perf"
	CommitTypeTest     = "test"
	CommitTypeChore    = "chore"
)

// CommitFooter marks commits written by inlay.
const CommitFooter = "Powered-by: inlay"

// FormatCommitMessage builds a Conventional Commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Powered-by: inlay
func FormatCommitMessage(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = CommitTypeChore
	}
	sb.WriteString(ctype)
	if scope != "" {
		sb.WriteString("(" + scope + ")")
	}
	sb.WriteString(": ")
	sb.WriteString(subject)

	if body = strings.TrimSpace(body); body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}

	sb.WriteString("\n\n")
	sb.WriteString(CommitFooter)
	return sb.String()
}

// AppendFooter adds the footer to a free-form message unless present.
func AppendFooter(msg string) string {
	if strings.Contains(msg, CommitFooter) {
		return msg
	}
	msg = strings.TrimRight(msg, "\n")
	return msg + "\n\n" + CommitFooter
}
