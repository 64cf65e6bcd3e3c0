package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/podbrah/podbrah-backend/apperr"
)

var ErrSubscribe = apperr.New(apperr.KindUpstream, "subscribe_failed", "Failed to subscribe")

type Subscriber interface {
	Subscribe(ctx context.Context, email string) error
}

// ActiveCampaign adds contacts through the v3 contacts API.
type ActiveCampaign struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewActiveCampaign(baseURL, apiKey string) *ActiveCampaign {
	return &ActiveCampaign{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    newHTTPClient(15 * time.Second),
	}
}

type contactRequest struct {
	Contact struct {
		Email string `json:"email"`
	} `json:"contact"`
}

func (a *ActiveCampaign) Subscribe(ctx context.Context, email string) error {
	var body contactRequest
	body.Contact.Email = email

	err := doJSON(ctx, a.http, http.MethodPost, a.baseURL+"/api/3/contacts", map[string]string{"Api-Token": a.apiKey}, body, nil)
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if msg := providerMessage(httpErr.Body); msg != "" {
			return &apperr.Error{Kind: apperr.KindUpstream, Code: ErrSubscribe.Code, Message: msg, Err: ErrSubscribe}
		}
	}
	return fmt.Errorf("%w: %w", ErrSubscribe, err)
}

// providerMessage pulls a human message out of an ActiveCampaign error body.
func providerMessage(body string) string {
	var parsed struct {
		Message string `json:"message"`
		Errors  []struct {
			Title string `json:"title"`
		} `json:"errors"`
	}
	if json.Unmarshal([]byte(body), &parsed) != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	if len(parsed.Errors) > 0 {
		return parsed.Errors[0].Title
	}
	return ""
}
