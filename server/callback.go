package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/somtoday-proxy/internal/errors"
	"github.com/jrsteele09/somtoday-proxy/oauthmodel"
)

// CallbackNotifier POSTs exchange results to caller supplied callback URLs.
// Delivery is a single best-effort attempt.
type CallbackNotifier struct {
	client *http.Client
}

func NewCallbackNotifier(client *http.Client) *CallbackNotifier {
	return &CallbackNotifier{client: client}
}

// Deliver POSTs payload as JSON to callbackURL. Any non-2xx answer is an error.
func (n *CallbackNotifier) Deliver(ctx context.Context, callbackURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "[CallbackNotifier Deliver] marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "[CallbackNotifier Deliver] invalid callback URL")
	}
	req.Header.Set("Content-Type", contentTypeJSON)

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "[CallbackNotifier Deliver] POST %s", callbackURL)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("[CallbackNotifier Deliver] callback answered %d", resp.StatusCode)
	}
	return nil
}

// NotifyError delivers {"error": message} to callbackURL.
func (n *CallbackNotifier) NotifyError(ctx context.Context, callbackURL, message string) error {
	return n.Deliver(ctx, callbackURL, oauthmodel.ErrorPayload{Error: message})
}
