package llm

import (
	"context"
	"encoding/json"
)

type credentialOverrideKey struct{}

// Credential carries the API key supplied by the host's credential
// collaborator. It is opaque secret material: String and MarshalJSON mask the
// key so it can never leak through logs or serialized diagnostics.
type Credential struct {
	APIKey string
}

func (c Credential) String() string {
	if c.APIKey == "" {
		return "Credential{}"
	}
	return "Credential{APIKey:***}"
}

func (c Credential) MarshalJSON() ([]byte, error) {
	type masked struct {
		APIKey string `json:"api_key,omitempty"`
	}
	out := masked{}
	if c.APIKey != "" {
		out.APIKey = "***"
	}
	return json.Marshal(out)
}

// WithCredentialOverride stores a per-call credential in ctx, overriding the
// client's configured key for that call only. An empty credential leaves ctx
// unchanged.
func WithCredentialOverride(ctx context.Context, c Credential) context.Context {
	if c.APIKey == "" {
		return ctx
	}
	return context.WithValue(ctx, credentialOverrideKey{}, c)
}

// CredentialOverrideFromContext reads a per-call credential from ctx.
func CredentialOverrideFromContext(ctx context.Context) (Credential, bool) {
	v := ctx.Value(credentialOverrideKey{})
	if v == nil {
		return Credential{}, false
	}
	c, ok := v.(Credential)
	return c, ok
}
