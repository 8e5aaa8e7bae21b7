// Package audit provides a structured audit logger for CLI command invocations.
// It logs the command name, the config file in effect and the operational
// environment, so operators can trace what ran against which cluster without
// exposing credentials.
//
// Secrets are logged as presence/absence only. Connection URIs keep their
// host but lose their userinfo.
package audit

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// kind is how an audited env var is rendered.
type kind int

const (
	// plain values are logged verbatim.
	plain kind = iota
	// secret values are logged as "set" or "unset".
	secret
	// uri values are logged with any embedded password removed.
	uri
)

// auditEntry defines an env var to include in the audit log.
type auditEntry struct {
	// key is the environment variable name.
	key string
	// kind controls redaction.
	kind kind
}

// auditKeys is the ordered list of env vars included in every audit log entry.
var auditKeys = []auditEntry{
	{"MONGODB_URI", uri},
	{"MONGODB_DATABASE", plain},
	{"MONGODB_COLLECTION", plain},
	{"VECTOR_BACKEND", plain},
	{"INDEX_NAME", plain},
	{"VECTOR_DIMENSIONS", plain},
	{"OPENSEARCH_ENDPOINT", uri},
	{"OPENSEARCH_USERNAME", plain},
	{"OPENSEARCH_PASSWORD", secret},
	{"QDRANT_HOST", plain},
	{"QDRANT_PORT", plain},
	{"QDRANT_API_KEY", secret},
	{"EMBEDDING_PROVIDER", plain},
	{"EMBEDDING_MODEL", plain},
	{"EMBEDDING_API_KEY", secret},
	{"MODEL_PROVIDER", plain},
	{"MODEL_ID", plain},
	{"AWS_REGION", plain},
	{"BEDROCK_MODEL_ID", plain},
	{"OPENAI_API_KEY", secret},
	{"OPENAI_MODEL", plain},
	{"AZURE_OPENAI_API_KEY", secret},
	{"AZURE_OPENAI_ENDPOINT", uri},
	{"AZURE_OPENAI_DEPLOYMENT", plain},
	{"OLLAMA_HOST", uri},
	{"OLLAMA_MODEL", plain},
	{"GOOGLE_API_KEY", secret},
	{"GEMINI_MODEL", plain},
	{"ARK_API_KEY", secret},
	{"ARK_MODEL_ID", plain},
	{"AWS_SECRET_ACCESS_KEY", secret},
	{"AWS_SESSION_TOKEN", secret},
	{"CATALOGRAG_LEDGER_DB", plain},
	{"LOG_LEVEL", plain},
	{"LOG_FORMAT", plain},
	{"LANGFUSE_PUBLIC_KEY", secret},
	{"LANGFUSE_SECRET_KEY", secret},
}

// kinds indexes auditKeys by name for SanitiseKey.
var kinds = func() map[string]kind {
	m := make(map[string]kind, len(auditKeys))
	for _, e := range auditKeys {
		m[e.key] = e.kind
	}
	return m
}()

// LogCommandStart emits a structured audit log entry when a CLI command begins.
func LogCommandStart(ctx context.Context, log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}
	for _, entry := range auditKeys {
		attrs = append(attrs, slog.String(entry.key, render(entry.kind, os.Getenv(entry.key))))
	}
	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey renders value the way the audit log would for key. Unknown keys
// are treated as plain.
func SanitiseKey(key, value string) string {
	return render(kinds[key], value)
}

func render(k kind, v string) string {
	switch k {
	case secret:
		return presence(v)
	case uri:
		return redactURI(v)
	default:
		return valOrUnset(v)
	}
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// redactURI strips the password from a URI. Values that do not parse are
// reduced to presence, since they may be a bare secret.
func redactURI(v string) string {
	if v == "" {
		return "unset"
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return presence(v)
	}
	if u.User != nil {
		if _, hasPassword := u.User.Password(); hasPassword {
			u.User = url.UserPassword(u.User.Username(), "xxxxx")
		}
	}
	return u.Redacted()
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
