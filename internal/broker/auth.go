package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp/totp"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
)

const (
	kiteBaseURL    = "https://kite.zerodha.com"
	kiteLoginURL   = kiteBaseURL + "/api/login"
	kiteTwoFAURL   = kiteBaseURL + "/api/twofa"
	kiteConnectURL = kiteBaseURL + "/connect/login"
)

type kiteLoginResponse struct {
	Status string `json:"status"`
	Data   struct {
		RequestID string `json:"request_id"`
	} `json:"data"`
	Message string `json:"message"`
}

// AutoLogin establishes a fresh daily session without a browser: it signs in
// with user ID and password, answers the 2FA challenge with a generated TOTP
// code, captures the request token from the Kite Connect redirect, and
// exchanges it for an access token.
func (z *ZerodhaGateway) AutoLogin(ctx context.Context, password, totpSecret string) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return fmt.Errorf("creating cookie jar: %w", err)
	}

	client := &http.Client{
		Jar:     jar,
		Timeout: 30 * time.Second,
	}

	requestID, err := z.submitLogin(ctx, client, password)
	if err != nil {
		return apperrors.NewBrokerError("auto_login", "password step failed", err)
	}

	if err := z.submitTwoFA(ctx, client, requestID, totpSecret); err != nil {
		return apperrors.NewBrokerError("auto_login", "2fa step failed", err)
	}

	requestToken, err := z.captureRequestToken(ctx, client)
	if err != nil {
		return apperrors.NewBrokerError("auto_login", "request token capture failed", err)
	}

	return z.CompleteLogin(ctx, requestToken)
}

func (z *ZerodhaGateway) submitLogin(ctx context.Context, client *http.Client, password string) (string, error) {
	form := url.Values{
		"user_id":  {z.userID},
		"password": {password},
	}

	resp, err := postForm(ctx, client, kiteLoginURL, form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var login kiteLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		return "", fmt.Errorf("decoding login response: %w", err)
	}
	if login.Status != "success" || login.Data.RequestID == "" {
		return "", fmt.Errorf("login rejected: %s", login.Message)
	}

	return login.Data.RequestID, nil
}

func (z *ZerodhaGateway) submitTwoFA(ctx context.Context, client *http.Client, requestID, totpSecret string) error {
	code, err := totp.GenerateCode(strings.TrimSpace(totpSecret), time.Now())
	if err != nil {
		return fmt.Errorf("generating TOTP code: %w", err)
	}

	form := url.Values{
		"user_id":     {z.userID},
		"request_id":  {requestID},
		"twofa_value": {code},
		"twofa_type":  {"totp"},
	}

	resp, err := postForm(ctx, client, kiteTwoFAURL, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var twofa kiteLoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&twofa); err != nil {
		return fmt.Errorf("decoding 2fa response: %w", err)
	}
	if twofa.Status != "success" {
		return fmt.Errorf("2fa rejected: %s", twofa.Message)
	}

	return nil
}

// captureRequestToken follows the Kite Connect authorize redirect chain until
// the final redirect carries request_token as a query parameter.
func (z *ZerodhaGateway) captureRequestToken(ctx context.Context, client *http.Client) (string, error) {
	var requestToken string

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if token := req.URL.Query().Get("request_token"); token != "" {
			requestToken = token
			return http.ErrUseLastResponse
		}
		if len(via) >= 10 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}
	defer func() { client.CheckRedirect = nil }()

	authorizeURL := fmt.Sprintf("%s?api_key=%s&v=3", kiteConnectURL, url.QueryEscape(z.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authorizeURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := client.Do(req)
	if err != nil && requestToken == "" {
		return "", err
	}
	if resp != nil {
		resp.Body.Close()
	}

	if requestToken == "" {
		return "", fmt.Errorf("redirect chain did not yield a request token")
	}

	return requestToken, nil
}

func postForm(ctx context.Context, client *http.Client, target string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	return resp, nil
}
