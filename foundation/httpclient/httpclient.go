// Package httpclient provides basic http functions
package httpclient

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"
)

// Client wraps a http.Client with a bounded request timeout.
// The fetch call is the only place in a provider's tick with a network
// timeout; once it trips the tick is treated as a failed fetch.
type Client struct {
	httpClient *http.Client
}

// MakeClient builds a Client whose requests give up after timeout.
func MakeClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// RetrieveBytes pulls bytes from url using simple GET request
func (c *Client) RetrieveBytes(url string) ([]byte, error) {
	resp, err := c.httpClient.Get(url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d from %s", resp.StatusCode, url)
	}

	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetJSON retrieves url and unmarshals the JSON response body into target
func (c *Client) GetJSON(url string, target interface{}) error {
	body, err := c.RetrieveBytes(url)
	if err != nil {
		return err
	}
	err = json.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("unable to parse json from %s: %w", url, err)
	}
	return nil
}

// GetXML retrieves url and unmarshals the XML response body into target
func (c *Client) GetXML(url string, target interface{}) error {
	body, err := c.RetrieveBytes(url)
	if err != nil {
		return err
	}
	err = xml.Unmarshal(body, target)
	if err != nil {
		return fmt.Errorf("unable to parse xml from %s: %w", url, err)
	}
	return nil
}
