package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lifedrop/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type Report struct {
	RequestID    string            `json:"requestId"`
	BloodGroup   types.BloodGroup  `json:"bloodGroup"`
	City         string            `json:"city"`
	SentCount    int               `json:"sentCount"`
	Delivered    int               `json:"delivered"`
	Failed       int               `json:"failed"`
	Recipients   []ReportRecipient `json:"recipients"`
	DispatchedAt time.Time         `json:"dispatchedAt"`
}

type ReportRecipient struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

func newReport(details Details, result Result, at time.Time) *Report {
	report := &Report{
		RequestID:    details.RequestID,
		BloodGroup:   details.BloodGroup,
		City:         details.City,
		SentCount:    result.SentCount,
		Delivered:    result.Delivered,
		Failed:       result.Failed,
		Recipients:   make([]ReportRecipient, 0, len(result.Outcomes)),
		DispatchedAt: at.UTC(),
	}
	for _, o := range result.Outcomes {
		rr := ReportRecipient{UserID: o.Recipient.UserID, Email: o.Recipient.Email, Delivered: o.Err == nil}
		if o.Err != nil {
			rr.Error = o.Err.Error()
		}
		report.Recipients = append(report.Recipients, rr)
	}
	return report
}

func (r *Report) Key() string {
	return fmt.Sprintf("notifications/%s/%s.json", r.DispatchedAt.Format("2006/01/02"), r.RequestID)
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive writes batch reports as JSON objects.
type S3Archive struct {
	client putObjectAPI
	bucket string
}

func NewS3Archive(client putObjectAPI, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

func (a *S3Archive) Store(ctx context.Context, report *Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal notification report: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(report.Key()),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &types.DependencyError{Op: "archive notification report", Err: err}
	}

	return nil
}
