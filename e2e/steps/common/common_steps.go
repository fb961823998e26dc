//go:build e2e

package common

import (
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	StatusCode() int
	ResponseField(field string) (any, error)
}

// RegisterSteps registers generic response assertions.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.responseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.responseFieldShouldBeBool)
	ctx.Step(`^the rejection reasons should include "([^"]*)"$`, steps.reasonsShouldInclude)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) responseStatusShouldBe(expected int) error {
	if got := s.tc.StatusCode(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(field string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
		return fmt.Errorf("field %q is empty", field)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBe(field, expected string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(v) != expected {
		return fmt.Errorf("expected %s to be %q, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldBeBool(field, expected string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	b, ok := v.(bool)
	if !ok || fmt.Sprint(b) != expected {
		return fmt.Errorf("expected %s to be %s, got %v", field, expected, v)
	}
	return nil
}

func (s *commonSteps) reasonsShouldInclude(reason string) error {
	v, err := s.tc.ResponseField("reasons")
	if err != nil {
		return err
	}
	reasons, _ := v.([]any)
	for _, r := range reasons {
		if r == reason {
			return nil
		}
	}
	return fmt.Errorf("reasons %v do not include %q", reasons, reason)
}
