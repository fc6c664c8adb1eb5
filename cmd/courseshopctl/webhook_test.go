package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	stripeclient "github.com/fatflowers/courseshop/internal/platform/stripe"
)

func TestWebhookSign_ProducesVerifiableHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","object":"event","type":"account.updated","data":{"object":{"id":"acct_1"}}}`)
	path := filepath.Join(t.TempDir(), "evt.json")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	cmd := webhookSignCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--secret", "whsec_test"})
	require.NoError(t, cmd.Execute())

	header := strings.TrimSpace(out.String())
	ev, err := stripeclient.VerifyEvent(payload, header, "whsec_test")
	require.NoError(t, err)
	require.Equal(t, "evt_1", ev.ID)

	_, err = stripeclient.VerifyEvent(payload, header, "whsec_other")
	require.ErrorIs(t, err, stripeclient.ErrInvalidSignature)
}

func TestCacheInvalidate_RequiresATarget(t *testing.T) {
	cmd := cacheInvalidateCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(nil)
	require.ErrorContains(t, cmd.Execute(), "required")
}
