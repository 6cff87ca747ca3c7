package e2e

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cucumber/godog"
)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the solmeet gateway is running$`, tc.gatewayIsRunning)
	ctx.Step(`^organizer "([^"]*)" created an event with capacity (\d+) and a (\d+) second window at T0$`, tc.createEvent)
	ctx.Step(`^the organizer issued (\d+) credentials$`, tc.issueCredentials)

	// Claim steps
	ctx.Step(`^attendees "([^"]*)" concurrently present one credential each at T0\+(\d+)s$`, tc.presentConcurrently)
	ctx.Step(`^an accepted attendee presents their credential again at T0\+(\d+)s$`, tc.replayAccepted)
	ctx.Step(`^attendee "([^"]*)" presents a tampered copy of credential (\d+) at T0\+(\d+)s$`, tc.presentTampered)
	ctx.Step(`^attendee "([^"]*)" fetches their proof$`, tc.fetchProof)
	ctx.Step(`^the organizer lists the claims$`, tc.listClaims)
	ctx.Step(`^I GET the event$`, tc.getEvent)
	ctx.Step(`^the organizer reads the audit trail$`, tc.readAuditTrail)
	ctx.Step(`^attendee "([^"]*)" reads the audit trail$`, tc.readAuditTrailAs)

	// Assertion steps
	ctx.Step(`^exactly (\d+) claims? (?:is|are) accepted$`, tc.acceptedCount)
	ctx.Step(`^exactly (\d+) claims? (?:is|are) rejected with "([^"]*)"$`, tc.rejectedCount)
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response lists (\d+) claims$`, tc.responseListsClaims)
	ctx.Step(`^the audit trail records (\d+) "([^"]*)" entr(?:y|ies)$`, tc.auditTrailRecords)
}

func (tc *TestContext) gatewayIsRunning(ctx context.Context) error {
	tc.T0 = time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	tc.clock.Set(tc.T0)
	return tc.start()
}

func (tc *TestContext) at(offsetSeconds int) {
	tc.clock.Set(tc.T0.Add(time.Duration(offsetSeconds) * time.Second))
}

func (tc *TestContext) createEvent(ctx context.Context, organizer string, capacity, windowSeconds int) error {
	token, err := tc.tokenFor(organizer)
	if err != nil {
		return err
	}
	tc.callers["organizer"] = token
	tc.at(0)

	resp, err := tc.do(http.MethodPost, "/events", token, map[string]any{
		"title":        "Solana meetup",
		"window_start": tc.T0,
		"window_end":   tc.T0.Add(time.Duration(windowSeconds) * time.Second),
		"capacity":     capacity,
	})
	if err != nil {
		return err
	}
	tc.record(resp)
	if resp.Status != http.StatusCreated {
		return fmt.Errorf("create event: expected 201, got %d: %s", resp.Status, resp.Body)
	}
	id, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.EventID = id.(string)
	return nil
}

func (tc *TestContext) issueCredentials(ctx context.Context, count int) error {
	tc.at(0)
	resp, err := tc.do(http.MethodPost, "/events/"+tc.EventID+"/credentials", tc.callers["organizer"], map[string]any{
		"count": count,
	})
	if err != nil {
		return err
	}
	tc.record(resp)
	if resp.Status != http.StatusCreated {
		return fmt.Errorf("issue credentials: expected 201, got %d: %s", resp.Status, resp.Body)
	}

	var out struct {
		Credentials []struct {
			Text string `json:"text"`
		} `json:"credentials"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return err
	}
	if len(out.Credentials) != count {
		return fmt.Errorf("expected %d credentials, got %d", count, len(out.Credentials))
	}
	tc.Credentials = tc.Credentials[:0]
	for _, c := range out.Credentials {
		tc.Credentials = append(tc.Credentials, c.Text)
	}
	return nil
}

func (tc *TestContext) presentConcurrently(ctx context.Context, names string, offset int) error {
	attendees := strings.Split(names, ",")
	if len(attendees) > len(tc.Credentials) {
		return fmt.Errorf("only %d credentials issued", len(tc.Credentials))
	}
	tokens := make([]string, len(attendees))
	for i, name := range attendees {
		attendees[i] = strings.TrimSpace(name)
		token, err := tc.tokenFor(attendees[i])
		if err != nil {
			return err
		}
		tokens[i] = token
	}
	tc.at(offset)

	results := make([]response, len(attendees))
	errs := make([]error, len(attendees))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range attendees {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = tc.do(http.MethodPost, "/claims", tokens[i], map[string]string{
				"credential": tc.Credentials[i],
			})
		}(i)
	}
	close(start)
	wg.Wait()

	for i, name := range attendees {
		if errs[i] != nil {
			return errs[i]
		}
		tc.claims[name] = results[i]
		tc.holders[name] = i
	}
	return nil
}

func (tc *TestContext) replayAccepted(ctx context.Context, offset int) error {
	for name, r := range tc.claims {
		if r.Status != http.StatusCreated {
			continue
		}
		tc.at(offset)
		resp, err := tc.do(http.MethodPost, "/claims", tc.callers[name], map[string]string{
			"credential": tc.Credentials[tc.holders[name]],
		})
		if err != nil {
			return err
		}
		tc.record(resp)
		return nil
	}
	return fmt.Errorf("no accepted claim to replay")
}

func (tc *TestContext) presentTampered(ctx context.Context, name string, index, offset int) error {
	if index < 1 || index > len(tc.Credentials) {
		return fmt.Errorf("credential %d was not issued", index)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tc.Credentials[index-1])
	if err != nil {
		return err
	}
	// flip one signature bit
	raw[len(raw)-1] ^= 0x01

	token, err := tc.tokenFor(name)
	if err != nil {
		return err
	}
	tc.at(offset)
	resp, err := tc.do(http.MethodPost, "/claims", token, map[string]string{
		"credential": base64.RawURLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) fetchProof(ctx context.Context, name string) error {
	token, err := tc.tokenFor(name)
	if err != nil {
		return err
	}
	resp, err := tc.do(http.MethodGet, "/events/"+tc.EventID+"/claims/me", token, nil)
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) listClaims(ctx context.Context) error {
	resp, err := tc.do(http.MethodGet, "/events/"+tc.EventID+"/claims", tc.callers["organizer"], nil)
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) readAuditTrail(ctx context.Context) error {
	resp, err := tc.do(http.MethodGet, "/events/"+tc.EventID+"/audit", tc.callers["organizer"], nil)
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) readAuditTrailAs(ctx context.Context, name string) error {
	token, err := tc.tokenFor(name)
	if err != nil {
		return err
	}
	resp, err := tc.do(http.MethodGet, "/events/"+tc.EventID+"/audit", token, nil)
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) getEvent(ctx context.Context) error {
	resp, err := tc.do(http.MethodGet, "/events/"+tc.EventID, "", nil)
	if err != nil {
		return err
	}
	tc.record(resp)
	return nil
}

func (tc *TestContext) acceptedCount(ctx context.Context, want int) error {
	got := 0
	for _, r := range tc.claims {
		if r.Status == http.StatusCreated {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d accepted claims, got %d", want, got)
	}
	return nil
}

func (tc *TestContext) rejectedCount(ctx context.Context, want int, code string) error {
	got := 0
	for _, r := range tc.claims {
		var body struct {
			Error string `json:"error"`
		}
		if r.Status == http.StatusCreated || json.Unmarshal(r.Body, &body) != nil {
			continue
		}
		if body.Error == code {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d claims rejected with %s, got %d", want, code, got)
	}
	return nil
}

func (tc *TestContext) responseStatusShouldBe(ctx context.Context, expected int) error {
	if tc.LastStatus != expected {
		return fmt.Errorf("expected status %d, got %d. Body: %s", expected, tc.LastStatus, tc.LastResponseBody)
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(ctx context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if actual := fmt.Sprint(value); actual != expected {
		return fmt.Errorf("expected field %s to equal %q, got %q", field, expected, actual)
	}
	return nil
}

func (tc *TestContext) responseListsClaims(ctx context.Context, want int) error {
	value, err := tc.GetResponseField("claims")
	if err != nil {
		return err
	}
	claims, ok := value.([]any)
	if !ok {
		return fmt.Errorf("claims is not a list")
	}
	if len(claims) != want {
		return fmt.Errorf("expected %d claims, got %d", want, len(claims))
	}
	return nil
}

func (tc *TestContext) auditTrailRecords(ctx context.Context, want int, action string) error {
	var out struct {
		Entries []struct {
			Action string `json:"action"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(tc.LastResponseBody, &out); err != nil {
		return fmt.Errorf("decode audit trail: %w", err)
	}
	got := 0
	for _, e := range out.Entries {
		if e.Action == action {
			got++
		}
	}
	if got != want {
		return fmt.Errorf("expected %d %s entries, got %d", want, action, got)
	}
	return nil
}
