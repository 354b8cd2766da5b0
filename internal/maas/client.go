// Package maas is a minimal client for the MAAS REST API, covering only
// what report generation needs: hostname resolution, machine details, and
// commissioning script outputs. Requests sign with OAuth1 PLAINTEXT, the
// scheme MAAS API keys use.
package maas

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Client talks to one MAAS deployment.
type Client struct {
	base        string
	consumerKey string
	tokenKey    string
	tokenSecret string
	http        *http.Client
	log         zerolog.Logger
}

// ScriptRun is one commissioning script's execution summary.
type ScriptRun struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	ExitStatus int    `json:"exit_status"`
	Runtime    string `json:"runtime"`
}

// New builds a client from the MAAS URL and an API key of the form
// consumer_key:token_key:token_secret.
func New(maasURL, apiKey string, log zerolog.Logger) (*Client, error) {
	parts := strings.Split(apiKey, ":")
	if len(parts) != 3 {
		return nil, errors.Errorf("API key must be consumer_key:token_key:token_secret, got %d part(s)", len(parts))
	}
	return &Client{
		base:        strings.TrimRight(maasURL, "/"),
		consumerKey: parts[0],
		tokenKey:    parts[1],
		tokenSecret: parts[2],
		http:        &http.Client{Timeout: 60 * time.Second},
		log:         log,
	}, nil
}

// BaseURL returns the configured MAAS root, without a trailing slash.
func (c *Client) BaseURL() string { return c.base }

// get performs an authenticated GET against the 2.0 API, retrying transient
// failures with exponential backoff.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.base + "/api/2.0/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", c.authHeader())

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return errors.Errorf("GET %s: %s", path, resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(errors.Errorf("GET %s: %s", path, resp.Status))
		}
		body = data
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	return body, nil
}

// authHeader builds the OAuth1 PLAINTEXT Authorization header. The
// signature is just "&token_secret": MAAS consumers carry no secret of
// their own.
func (c *Client) authHeader() string {
	return fmt.Sprintf(
		`OAuth oauth_version="1.0", oauth_signature_method="PLAINTEXT", `+
			`oauth_consumer_key=%q, oauth_token=%q, oauth_signature="%s", `+
			`oauth_nonce=%q, oauth_timestamp="%d"`,
		c.consumerKey, c.tokenKey, "%26"+url.QueryEscape(c.tokenSecret),
		uuid.NewString(), time.Now().Unix(),
	)
}

// ResolveHostname finds the machine with the given hostname. When several
// match, the first is used with a warning.
func (c *Client) ResolveHostname(ctx context.Context, hostname string) (gjson.Result, error) {
	body, err := c.get(ctx, "machines/", url.Values{"hostname": {hostname}})
	if err != nil {
		return gjson.Result{}, err
	}
	machines := gjson.ParseBytes(body).Array()
	if len(machines) == 0 {
		return gjson.Result{}, errors.Errorf("no machine found with hostname %q", hostname)
	}
	if len(machines) > 1 {
		c.log.Warn().Int("matches", len(machines)).Str("hostname", hostname).
			Msg("multiple machines match, using first")
	}
	return machines[0], nil
}

// MachineDetails fetches the full machine record (CPU, RAM, disks, NICs,
// NUMA, hardware info).
func (c *Client) MachineDetails(ctx context.Context, systemID string) (gjson.Result, error) {
	body, err := c.get(ctx, "machines/"+systemID+"/", nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

// CommissioningResults fetches current commissioning results with output
// included, optionally filtered by script names.
func (c *Client) CommissioningResults(ctx context.Context, systemID string, scriptNames ...string) (gjson.Result, error) {
	params := url.Values{"include_output": {"1"}}
	if len(scriptNames) > 0 {
		params.Set("filters", strings.Join(scriptNames, ","))
	}
	body, err := c.get(ctx, "nodes/"+systemID+"/results/current-commissioning/", params)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

func decodeStdout(result gjson.Result) []byte {
	b64 := result.Get("stdout").String()
	if b64 == "" {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil
	}
	return raw
}

func looksLikeXML(raw []byte) bool {
	s := string(raw)
	return strings.Contains(s, "<?xml") || strings.Contains(s, "<list>") || strings.Contains(s, "<node")
}

// Script names vary across MAAS versions; each payload fetch walks a list
// of known names before falling back to an unfiltered scan.
var hardwareTreeScripts = []string{
	"00-maas-01-lshw",
	"lshw",
	"maas-lshw",
	"00-maas-00-lshw",
}

// HardwareTree fetches the lshw XML via commissioning script output, trying
// each known script name and finally scanning all results for anything
// lshw-flavored. Returns nil when no strategy produced XML.
func (c *Client) HardwareTree(ctx context.Context, systemID string) []byte {
	for _, name := range hardwareTreeScripts {
		data, err := c.CommissioningResults(ctx, systemID, name)
		if err != nil {
			continue
		}
		var found []byte
		data.Get("results").ForEach(func(_, r gjson.Result) bool {
			if raw := decodeStdout(r); raw != nil && looksLikeXML(raw) {
				found = raw
				return false
			}
			return true
		})
		if found != nil {
			c.log.Debug().Str("script", name).Int("bytes", len(found)).Msg("hardware tree fetched")
			return found
		}
	}

	// Unfiltered search for any script with lshw in its name.
	data, err := c.CommissioningResults(ctx, systemID)
	if err != nil {
		c.log.Warn().Err(err).Msg("hardware tree search failed")
		return nil
	}
	var found []byte
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		if !strings.Contains(strings.ToLower(r.Get("name").String()), "lshw") {
			return true
		}
		if raw := decodeStdout(r); raw != nil && looksLikeXML(raw) {
			found = raw
			return false
		}
		return true
	})
	if found == nil {
		c.log.Warn().Msg("no hardware tree in any commissioning result")
	}
	return found
}

var resourceScripts = []string{
	"40-maas-01-machine-resources",
	"machine-resources",
	"maas-machine-resources",
}

// MachineResources fetches and parses the machine-resources JSON output
// (detailed PCI, memory, storage enumeration).
func (c *Client) MachineResources(ctx context.Context, systemID string) (gjson.Result, bool) {
	for _, name := range resourceScripts {
		data, err := c.CommissioningResults(ctx, systemID, name)
		if err != nil {
			continue
		}
		if doc, ok := resourcesFromResults(data, name); ok {
			return doc, true
		}
	}

	data, err := c.CommissioningResults(ctx, systemID)
	if err != nil {
		c.log.Warn().Err(err).Msg("machine-resources fetch failed")
		return gjson.Result{}, false
	}
	var doc gjson.Result
	ok := false
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		name := r.Get("name").String()
		if !strings.Contains(name, "machine-resources") && !strings.Contains(name, "machine_resources") {
			return true
		}
		if raw := decodeStdout(r); raw != nil {
			if parsed, valid := ExtractJSON(string(raw)); valid {
				doc, ok = parsed, true
				return false
			}
		}
		return true
	})
	return doc, ok
}

func resourcesFromResults(data gjson.Result, scriptName string) (gjson.Result, bool) {
	var doc gjson.Result
	ok := false
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		name := r.Get("name").String()
		if !strings.Contains(name, "machine-resources") && name != scriptName {
			return true
		}
		if raw := decodeStdout(r); raw != nil {
			if parsed, valid := ExtractJSON(string(raw)); valid {
				doc, ok = parsed, true
				return false
			}
		}
		return true
	})
	return doc, ok
}

var firmwareTextScripts = []string{
	"dmidecode",
	"00-maas-06-get-fruid-data",
	"maas-dmidecode",
	"maas-get-fruid-api-data",
	"maas-support-info",
}

// FirmwareText finds dmidecode output among the commissioning results:
// named candidates first, then any output that carries Memory Device
// blocks with configured speeds.
func (c *Client) FirmwareText(ctx context.Context, systemID string) (string, bool) {
	for _, name := range firmwareTextScripts {
		if text, ok := c.ScriptStdout(ctx, systemID, name); ok {
			if strings.Contains(text, "Memory Device") && strings.Contains(text, "Configured") {
				c.log.Debug().Str("script", name).Msg("firmware text found")
				return text, true
			}
		}
	}

	data, err := c.CommissioningResults(ctx, systemID)
	if err != nil {
		return "", false
	}
	var text string
	found := false
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		raw := decodeStdout(r)
		if raw == nil {
			return true
		}
		s := string(raw)
		if strings.Contains(s, "Memory Device") && strings.Contains(s, "Configured") {
			text, found = s, true
			c.log.Debug().Str("script", r.Get("name").String()).Msg("firmware text found embedded")
			return false
		}
		return true
	})
	return text, found
}

// ScriptJSON fetches a named script's stdout and extracts its JSON object.
func (c *Client) ScriptJSON(ctx context.Context, systemID, scriptName string) (gjson.Result, bool) {
	data, err := c.CommissioningResults(ctx, systemID, scriptName)
	if err != nil {
		c.log.Warn().Err(err).Str("script", scriptName).Msg("script fetch failed")
		return gjson.Result{}, false
	}
	var doc gjson.Result
	ok := false
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		if r.Get("name").String() != scriptName {
			return true
		}
		if raw := decodeStdout(r); raw != nil {
			if parsed, valid := ExtractJSON(string(raw)); valid {
				doc, ok = parsed, true
			}
		}
		return false
	})
	return doc, ok
}

// ScriptStdout fetches the raw stdout of a script by exact name, then by
// partial match across all results.
func (c *Client) ScriptStdout(ctx context.Context, systemID, hint string) (string, bool) {
	data, err := c.CommissioningResults(ctx, systemID, hint)
	if err == nil {
		results := data.Get("results").Array()
		if len(results) > 0 {
			if raw := decodeStdout(results[0]); raw != nil {
				return string(raw), true
			}
		}
	}

	data, err = c.CommissioningResults(ctx, systemID)
	if err != nil {
		return "", false
	}
	var text string
	found := false
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		if !strings.Contains(strings.ToLower(r.Get("name").String()), strings.ToLower(hint)) {
			return true
		}
		if raw := decodeStdout(r); raw != nil {
			text, found = string(raw), true
			return false
		}
		return true
	})
	return text, found
}

// CommissioningScripts lists every commissioning result entry's name,
// status, exit code, and runtime.
func (c *Client) CommissioningScripts(ctx context.Context, systemID string) ([]ScriptRun, error) {
	data, err := c.CommissioningResults(ctx, systemID)
	if err != nil {
		return nil, err
	}
	var runs []ScriptRun
	data.Get("results").ForEach(func(_, r gjson.Result) bool {
		runs = append(runs, ScriptRun{
			Name:       r.Get("name").String(),
			Status:     r.Get("status_name").String(),
			ExitStatus: int(r.Get("exit_status").Int()),
			Runtime:    r.Get("runtime").String(),
		})
		return true
	})
	return runs, nil
}
