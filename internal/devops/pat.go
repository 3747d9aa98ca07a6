package devops

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

// PATCredential is the non-delegated service identity. Azure DevOps accepts
// personal access tokens only via Basic auth with an empty user name.
type PATCredential struct {
	encoded string
}

func NewPATCredential(pat string) (*PATCredential, error) {
	if pat == "" {
		return nil, fmt.Errorf("pat credential requires a token")
	}
	return &PATCredential{
		encoded: base64.StdEncoding.EncodeToString([]byte(":" + pat)),
	}, nil
}

func (c *PATCredential) GetToken(_ context.Context, _ []string) (core.AccessToken, error) {
	return core.AccessToken{
		Token: c.encoded,
		Type:  core.TokenTypeBasic,
	}, nil
}
