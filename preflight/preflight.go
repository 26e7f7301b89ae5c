// Package preflight verifies, before any work starts, that the calling
// principal is allowed to perform the CloudWatch Logs actions the tool
// will issue. Finding out via IAM simulation beats failing halfway into a
// follow operation.
package preflight

import (
	"context"
	"fmt"
	"strings"

	sdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/cwtail/cwtail/aws"
)

// DefaultActions are the permissions exercised by follow, tail, and query.
var DefaultActions = []string{
	"logs:DescribeLogStreams",
	"logs:FilterLogEvents",
	"logs:StartLiveTail",
	"logs:StartQuery",
	"logs:GetQueryResults",
	"logs:StopQuery",
}

// DeniedError reports actions the principal may not perform.
type DeniedError struct {
	Principal string
	Actions   []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("principal %s is denied: %s", e.Principal, strings.Join(e.Actions, ", "))
}

// Checker runs the permission simulation.
type Checker struct {
	client aws.IAMClient
}

// NewChecker creates a Checker backed by the given IAM client.
func NewChecker(client aws.IAMClient) *Checker {
	return &Checker{client: client}
}

// Check simulates the given actions for the principal and returns a
// DeniedError naming every action that is not allowed. A nil or empty
// action list checks DefaultActions.
func (c *Checker) Check(ctx context.Context, principalARN string, actions []string) error {
	if len(actions) == 0 {
		actions = DefaultActions
	}

	out, err := c.client.SimulatePrincipalPolicy(ctx, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: sdk.String(principalARN),
		ActionNames:     actions,
	})
	if err != nil {
		return fmt.Errorf("simulating policy for %s: %w", principalARN, err)
	}

	var denied []string
	for _, r := range out.EvaluationResults {
		if r.EvalDecision != types.PolicyEvaluationDecisionTypeAllowed {
			denied = append(denied, sdk.ToString(r.EvalActionName))
		}
	}
	if len(denied) > 0 {
		return &DeniedError{Principal: principalARN, Actions: denied}
	}
	return nil
}
