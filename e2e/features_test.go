//go:build e2e

package e2e

import (
	"context"
	"testing"

	"github.com/cucumber/godog"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		Name: "onboarding",
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			tc, err := newTestContext()
			if err != nil {
				t.Fatalf("failed to start onboarding api: %v", err)
			}
			sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
				tc.Close()
				return ctx, err
			})
			RegisterSteps(sc, tc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
