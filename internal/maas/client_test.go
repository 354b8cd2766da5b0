package maas

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New("http://maas:5240/MAAS", "not-three-parts", zerolog.Nop())
	assert.Error(t, err)

	c, err := New("http://maas:5240/MAAS/", "aaa:bbb:ccc", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "http://maas:5240/MAAS", c.BaseURL())
}

func TestResolveHostname(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/2.0/machines/", r.URL.Path)
		assert.Equal(t, "node-01", r.URL.Query().Get("hostname"))
		fmt.Fprint(w, `[{"system_id": "abc123", "hostname": "node-01"}]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)

	machine, err := c.ResolveHostname(context.Background(), "node-01")
	require.NoError(t, err)
	assert.Equal(t, "abc123", machine.Get("system_id").String())

	assert.Contains(t, gotAuth, `oauth_consumer_key="ck"`)
	assert.Contains(t, gotAuth, `oauth_token="tk"`)
	assert.Contains(t, gotAuth, `oauth_signature_method="PLAINTEXT"`)
	assert.Contains(t, gotAuth, `oauth_signature="%26ts"`)
}

func TestResolveHostnameNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)
	_, err = c.ResolveHostname(context.Background(), "missing")
	assert.Error(t, err)
}

func TestHardwareTreeDecodesStdout(t *testing.T) {
	xml := `<?xml version="1.0"?><list><node id="server" class="system"></node></list>`
	encoded := base64.StdEncoding.EncodeToString([]byte(xml))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{"name": "00-maas-01-lshw", "stdout": "%s"}]}`, encoded)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)

	tree := c.HardwareTree(context.Background(), "abc123")
	assert.Equal(t, []byte(xml), tree)
}

func TestScriptJSON(t *testing.T) {
	payload := `{"install": {"gpu_count": 8}}`
	encoded := base64.StdEncoding.EncodeToString([]byte("INFO: noise\n" + payload + "\n"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results": [{"name": "97-nexgen-gpu-install-580-12.8", "stdout": "%s"}]}`, encoded)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)

	doc, ok := c.ScriptJSON(context.Background(), "abc123", "97-nexgen-gpu-install-580-12.8")
	require.True(t, ok)
	assert.Equal(t, int64(8), doc.Get("install.gpu_count").Int())
}

func TestGetPermanentOn404(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)

	_, err = c.MachineDetails(context.Background(), "abc123")
	assert.Error(t, err)
	assert.Equal(t, 1, calls) // 4xx is not retried
}

func TestCommissioningScripts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results": [
			{"name": "00-maas-01-lshw", "status_name": "Passed", "exit_status": 0, "runtime": "0:00:12"},
			{"name": "99-nexgen-gpu-stress-test", "status_name": "Passed", "exit_status": 0, "runtime": "1:02:03"}
		]}`)
	}))
	defer srv.Close()

	c, err := New(srv.URL, "ck:tk:ts", zerolog.Nop())
	require.NoError(t, err)

	runs, err := c.CommissioningScripts(context.Background(), "abc123")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "99-nexgen-gpu-stress-test", runs[1].Name)
	assert.Equal(t, "1:02:03", runs[1].Runtime)
}
