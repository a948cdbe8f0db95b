package repository

import (
	"context"

	"knowhow/services/catalog-service/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedDemo fills an empty catalog with one ready course so a fresh setup has something to show.
func SeedDemo(ctx context.Context, db *gorm.DB) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&domain.Course{}).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "count courses")
	}
	if count > 0 {
		return false, nil
	}

	ready := true
	desc := "How the web talks: requests, responses and everything in between."
	outcome := "Confidently read and debug HTTP traffic."
	course := &domain.Course{
		Topic:       "HTTP from first principles",
		Description: &desc,
		IsReady:     &ready,
		Outcome:     &outcome,
		Classes: []domain.Class{
			{
				Index:         1,
				Name:          "Requests and responses",
				Description:   ptr("The shape of an HTTP exchange."),
				Duration:      ptr("12 min"),
				Transcription: ptr(`An HTTP request has a method, a target and headers.\nThe response carries a status code.`),
				Resources:     datatypes.JSONSlice[string]{"https://www.rfc-editor.org/rfc/rfc9110"},
				Questions:     datatypes.JSONSlice[string]{"What does a 304 response mean?"},
			},
			{
				Index:       2,
				Name:        "Caching",
				Description: ptr("Freshness, validation and invalidation."),
				Duration:    ptr("15 min"),
				Questions:   datatypes.JSONSlice[string]{"When is a cached response stale?"},
			},
		},
	}
	if err := db.WithContext(ctx).Create(course).Error; err != nil {
		return false, errors.Wrap(err, "seed course")
	}
	return true, nil
}

func ptr(s string) *string { return &s }
