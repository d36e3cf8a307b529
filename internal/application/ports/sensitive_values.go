package ports

// SensitiveValueProvider collects secret values so log output and errors
// can be scrubbed of them.
type SensitiveValueProvider interface {
	// Track registers a value for redaction.
	Track(value string)

	// AllValues returns every tracked value.
	AllValues() []string
}

// SecretResolver resolves the NAME of a ${secret:NAME} reference at deploy
// time. Resolved values are tracked for redaction.
type SecretResolver interface {
	Resolve(name string) (string, error)
}
