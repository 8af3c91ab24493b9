// Pagelist - Page List Journal and Ordered List Materialization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pagelist

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("octalmode", func(fl validator.FieldLevel) bool {
			v, err := strconv.ParseUint(fl.Field().String(), 8, 32)
			return err == nil && v <= 0o7777
		})
	})
	return validate
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, formatFieldError(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if strings.ContainsAny(c.Coordinator.SubjectPrefix, " *>") {
		return fmt.Errorf("coordinator.subject_prefix %q must not contain spaces or wildcards", c.Coordinator.SubjectPrefix)
	}
	if c.Coordinator.Enabled && !c.Coordinator.EmbeddedServer && c.Coordinator.URL == "" {
		return errors.New("coordinator.url is required when the embedded server is disabled")
	}
	if c.Relay.Enabled && !c.Coordinator.EmbeddedServer && c.Coordinator.URL == "" {
		return errors.New("relay requires coordinator.url or the embedded server")
	}
	if c.Paging.DefaultPageSize > c.Paging.MaxPageSize {
		return fmt.Errorf("paging.default_page_size (%d) exceeds paging.max_page_size (%d)",
			c.Paging.DefaultPageSize, c.Paging.MaxPageSize)
	}
	if c.Scheduler.MaxWakeDelay < c.Scheduler.LoopTimeout {
		return fmt.Errorf("scheduler.max_wake_delay (%s) must not be shorter than scheduler.loop_timeout (%s)",
			c.Scheduler.MaxWakeDelay, c.Scheduler.LoopTimeout)
	}
	return nil
}

func formatFieldError(fe validator.FieldError) string {
	field := strings.ToLower(strings.TrimPrefix(fe.Namespace(), "Config."))
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", field, fe.Param(), fe.Value())
	case "octalmode":
		return fmt.Sprintf("%s must be an octal file mode, got %v", field, fe.Value())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed %s=%s (value %v)", field, fe.Tag(), fe.Param(), fe.Value())
		}
		return fmt.Sprintf("%s failed %s (value %v)", field, fe.Tag(), fe.Value())
	}
}
