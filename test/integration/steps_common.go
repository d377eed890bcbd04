package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cucumber/godog"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	adminToken   string
	vars         map[string]string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:   tc,
		vars: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Background steps
	sc.Step(`^the saasgate server is running$`, s.theServerIsRunning)
	sc.Step(`^a user "([^"]*)" with password "([^"]*)" exists$`, s.aUserExists)
	sc.Step(`^a role "([^"]*)" with permissions "([^"]*)" exists$`, s.aRoleExists)
	sc.Step(`^the user "([^"]*)" has the role "([^"]*)"$`, s.theUserHasTheRole)

	// Authentication steps
	sc.Step(`^I am logged in as the superuser$`, s.iAmLoggedInAsTheSuperuser)
	sc.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, s.iLogInAs)
	sc.Step(`^I log out$`, s.iLogOut)
	sc.Step(`^I should receive a bearer token$`, s.iShouldReceiveABearerToken)

	// Request steps
	sc.Step(`^I send a (GET|POST|PATCH|DELETE) request to "([^"]*)"$`, s.iSendARequest)
	sc.Step(`^I send a (POST|PATCH) request to "([^"]*)" with body:$`, s.iSendARequestWithBody)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response detail should be "([^"]*)"$`, s.theResponseDetailShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, s.iRememberTheResponseField)
	sc.Step(`^the response should be a list of (\d+) items?$`, s.theResponseShouldBeAListOf)

	// Payment steps
	sc.Step(`^I verify payment "([^"]*)" with a genuine sandbox signature$`, s.iVerifyPaymentWithGenuineSignature)
	sc.Step(`^I verify payment "([^"]*)" with the signature "([^"]*)"$`, s.iVerifyPaymentWithSignature)
	sc.Step(`^the payment "([^"]*)" should have status "([^"]*)" in the database$`, s.thePaymentShouldHaveStatus)

	// Token steps
	sc.Step(`^I use an access token for "([^"]*)" that expired (\d+) minutes ago$`, s.iUseAnExpiredToken)
	sc.Step(`^I use an access token for "([^"]*)" signed with a different key$`, s.iUseAForeignToken)
}

// Background steps

func (s *StepsContext) theServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) aUserExists(email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	status, respBody, err := s.do("POST", "/api/v1/auth/register", "", body)
	if err != nil {
		return err
	}
	if status == http.StatusCreated {
		return nil
	}
	if status == http.StatusBadRequest && strings.Contains(string(respBody), "REGISTER_USER_ALREADY_EXISTS") {
		return nil
	}
	return fmt.Errorf("failed to register %s: %d %s", email, status, respBody)
}

func (s *StepsContext) aRoleExists(name, perms string) error {
	token, err := s.superuserToken()
	if err != nil {
		return err
	}
	names := []string{}
	for _, p := range strings.Split(perms, ",") {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	body, _ := json.Marshal(map[string]interface{}{"name": name, "permissions": names})
	status, respBody, err := s.do("POST", "/api/v1/rbac/roles", token, body)
	if err != nil {
		return err
	}
	if status != http.StatusCreated && status != http.StatusConflict {
		return fmt.Errorf("failed to create role %s: %d %s", name, status, respBody)
	}
	return nil
}

func (s *StepsContext) theUserHasTheRole(email, roleName string) error {
	var userID, roleID int64
	if err := s.tc.RawDB.QueryRow(`SELECT id FROM users WHERE email = $1`, strings.ToLower(email)).Scan(&userID); err != nil {
		return fmt.Errorf("user %s: %w", email, err)
	}
	if err := s.tc.RawDB.QueryRow(`SELECT id FROM roles WHERE name = $1`, roleName).Scan(&roleID); err != nil {
		return fmt.Errorf("role %s: %w", roleName, err)
	}

	token, err := s.superuserToken()
	if err != nil {
		return err
	}
	status, respBody, err := s.do("POST", fmt.Sprintf("/api/v1/rbac/users/%d/roles/%d", userID, roleID), token, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("failed to assign role: %d %s", status, respBody)
	}
	return nil
}

// Authentication steps

func (s *StepsContext) superuserToken() (string, error) {
	if s.adminToken != "" {
		return s.adminToken, nil
	}
	token, err := s.login(s.tc.SuperuserEmail, s.tc.SuperuserPass)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", fmt.Errorf("superuser login failed: %d %s", s.response.StatusCode, s.responseBody)
	}
	s.adminToken = token
	return token, nil
}

func (s *StepsContext) iAmLoggedInAsTheSuperuser() error {
	token, err := s.superuserToken()
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iLogInAs(email, password string) error {
	token, err := s.login(email, password)
	if err != nil {
		return err
	}
	if token != "" {
		s.authToken = token
	}
	return nil
}

// login posts the OAuth2 password form and returns the token on success.
func (s *StepsContext) login(email, password string) (string, error) {
	form := url.Values{"username": {email}, "password": {password}}
	req, err := http.NewRequest("POST", s.tc.ServerURL+"/api/v1/auth/jwt/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := s.send(req); err != nil {
		return "", err
	}
	if s.response.StatusCode != http.StatusOK {
		return "", nil
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(s.responseBody, &token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (s *StepsContext) iLogOut() error {
	return s.iSendARequest("POST", "/api/v1/auth/jwt/logout")
}

func (s *StepsContext) iShouldReceiveABearerToken() error {
	var token map[string]string
	if err := json.Unmarshal(s.responseBody, &token); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if token["token_type"] != "bearer" || token["access_token"] == "" {
		return fmt.Errorf("expected a bearer token, got %s", s.responseBody)
	}
	return nil
}

// Request steps

func (s *StepsContext) iSendARequest(method, path string) error {
	return s.request(method, path, nil)
}

func (s *StepsContext) iSendARequestWithBody(method, path string, body *godog.DocString) error {
	return s.request(method, path, []byte(s.expand(body.Content)))
}

func (s *StepsContext) request(method, path string, body []byte) error {
	_, _, err := s.do(method, s.expand(path), s.authToken, body)
	return err
}

// expand replaces {name} with values remembered earlier in the scenario.
func (s *StepsContext) expand(text string) string {
	for name, value := range s.vars {
		text = strings.ReplaceAll(text, "{"+name+"}", value)
	}
	return text
}

func (s *StepsContext) do(method, path, token string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if err := s.send(req); err != nil {
		return 0, nil, err
	}
	return s.response.StatusCode, s.responseBody, nil
}

func (s *StepsContext) send(req *http.Request) error {
	var err error
	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no response received")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseDetailShouldBe(expected string) error {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if body.Detail != expected {
		return fmt.Errorf("expected detail %q, got %q", expected, body.Detail)
	}
	return nil
}

func (s *StepsContext) field(name string) (string, error) {
	var result map[string]interface{}
	if err := json.Unmarshal(s.responseBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	value, ok := result[name]
	if !ok {
		return "", fmt.Errorf("field %q not found in %s", name, s.responseBody)
	}
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (s *StepsContext) theResponseFieldShouldBe(name, expected string) error {
	actual, err := s.field(name)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("expected %s to be %q, got %q", name, expected, actual)
	}
	return nil
}

func (s *StepsContext) iRememberTheResponseField(name, as string) error {
	value, err := s.field(name)
	if err != nil {
		return err
	}
	s.vars[as] = value
	return nil
}

func (s *StepsContext) theResponseShouldBeAListOf(n int) error {
	var items []json.RawMessage
	if err := json.Unmarshal(s.responseBody, &items); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if len(items) != n {
		return fmt.Errorf("expected %d items, got %d", n, len(items))
	}
	return nil
}
