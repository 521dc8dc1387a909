package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cafepos/backend/internal/auth"
	"cafepos/backend/internal/domain"
)

const verifyPINPath = "/users/verify-pin"

// PINClient verifies manager PINs against the Auth service.
type PINClient struct {
	client *Client
}

func NewPINClient(client *Client) *PINClient {
	return &PINClient{client: client}
}

func (c *PINClient) VerifyPIN(ctx context.Context, pin string) (string, error) {
	if err := auth.ValidatePINInput(pin); err != nil {
		return "", err
	}
	var out domain.PINVerifyResult
	body := map[string]string{"pin": strings.TrimSpace(pin)}
	if err := c.client.do(ctx, http.MethodPost, verifyPINPath, body, &out); err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.StatusCode >= 400 && status.StatusCode < 500 {
			return "", fmt.Errorf("%w: %s", auth.ErrInvalidPIN, status.Message)
		}
		return "", err
	}
	username := strings.TrimSpace(out.ManagerUsername)
	if username == "" {
		return "", fmt.Errorf("%w: no manager returned", auth.ErrInvalidPIN)
	}
	return username, nil
}
