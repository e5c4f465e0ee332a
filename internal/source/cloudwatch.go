package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/jmespath/go-jmespath"
)

// LogsClient is the subset of the CloudWatch Logs API we use.
type LogsClient interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// CloudWatch streams events of one log group as lines, page by page.
type CloudWatch struct {
	client LogsClient
	group  string
	start  time.Time
	end    time.Time

	// Filter is an optional literal term matched server side.
	Filter string
	// MessagePath, when set, is a JMESPath expression selecting the syslog
	// line out of JSON-encoded events.
	MessagePath string
}

// NewCloudWatchClient loads AWS configuration with optional region and
// shared profile.
func NewCloudWatchClient(ctx context.Context, region, profile string) (*cloudwatchlogs.Client, error) {
	var cfgOpts []func(*config.LoadOptions) error
	if region != "" {
		cfgOpts = append(cfgOpts, config.WithRegion(region))
	}
	if profile != "" {
		cfgOpts = append(cfgOpts, config.WithSharedConfigProfile(profile))
	}
	cfg, err := config.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, err
	}
	return cloudwatchlogs.NewFromConfig(cfg), nil
}

// NewCloudWatch creates a source over group between start and end. Zero
// times leave that bound open.
func NewCloudWatch(client LogsClient, group string, start, end time.Time) *CloudWatch {
	return &CloudWatch{client: client, group: group, start: start, end: end}
}

func (c *CloudWatch) Name() string { return "cloudwatch:" + c.group }

func (c *CloudWatch) Each(ctx context.Context, fn func(line string) error) error {
	if c.group == "" {
		return errors.New("no log group configured")
	}

	in := &cloudwatchlogs.FilterLogEventsInput{LogGroupName: aws.String(c.group)}
	if !c.start.IsZero() {
		in.StartTime = aws.Int64(c.start.UnixMilli())
	}
	if !c.end.IsZero() {
		in.EndTime = aws.Int64(c.end.UnixMilli())
	}
	if c.Filter != "" {
		in.FilterPattern = aws.String(quoteTerm(c.Filter))
	}

	var next *string
	for {
		in.NextToken = next
		out, err := c.client.FilterLogEvents(ctx, in)
		if err != nil {
			return fmt.Errorf("filter log events %s: %w", c.group, err)
		}
		for _, e := range out.Events {
			line, err := c.message(aws.ToString(e.Message))
			if err != nil {
				return err
			}
			for _, l := range strings.Split(strings.TrimRight(line, "\n"), "\n") {
				if err := fn(strings.TrimSuffix(l, "\r")); err != nil {
					return err
				}
			}
		}
		if out.NextToken == nil || (next != nil && aws.ToString(out.NextToken) == aws.ToString(next)) {
			return nil
		}
		next = out.NextToken
	}
}

// quoteTerm makes term a literal filter pattern term, so pattern syntax
// such as a leading "-" or "?" inside it has no effect.
func quoteTerm(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `\"`) + `"`
}

// message applies MessagePath. Events that are not JSON are wrapped as
// {"message": raw}; a path that selects nothing yields an empty line.
func (c *CloudWatch) message(raw string) (string, error) {
	if c.MessagePath == "" {
		return raw, nil
	}

	var input any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		input = map[string]any{"message": raw}
	}

	res, err := jmespath.Search(c.MessagePath, input)
	if err != nil {
		return "", fmt.Errorf("jmespath search failed: %w", err)
	}
	switch v := res.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal result failed: %w", err)
		}
		return string(b), nil
	}
}
