package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	errors2 "github.com/pkg/errors"
	"go.uber.org/zap"

	"dataguard/internal/database"
	"dataguard/internal/storage"
	"dataguard/internal/types"
	"dataguard/logger"
)

type (
	RetentionService interface {
		// Apply evaluates every enabled rule, optionally scoped to one
		// organization. A failing rule is isolated into the result's Errors
		// and never stops the remaining rules.
		Apply(ctx context.Context, organizationID *uuid.UUID) (*types.RetentionResult, error)
	}

	retentionService struct {
		ruleRepository    database.RetentionRuleRepository
		archiveRepository database.ArchiveConfigurationRepository
		tableStore        database.TableStore
		storageFactory    storage.Factory
	}
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewRetentionService(rules database.RetentionRuleRepository,
	archives database.ArchiveConfigurationRepository,
	store database.TableStore, factory storage.Factory) RetentionService {
	return &retentionService{
		ruleRepository:    rules,
		archiveRepository: archives,
		tableStore:        store,
		storageFactory:    factory,
	}
}

func (r *retentionService) Apply(ctx context.Context, organizationID *uuid.UUID) (*types.RetentionResult, error) {
	rules, err := r.ruleRepository.FindEnabled(ctx, organizationID)
	if err != nil {
		return nil, errors2.Wrap(err, "failed to load retention rules")
	}

	result := &types.RetentionResult{Errors: make([]string, 0)}
	for _, rule := range rules {
		matched, deleted, archived, err := r.processRule(ctx, rule)
		result.Processed += matched
		result.Deleted += deleted
		result.Archived += archived
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("rule %s: %v", rule.Name, err))
			logger.Error("retention rule failed",
				zap.String("rule", rule.Name),
				zap.String("table", rule.Table),
				zap.Error(err))
		}
	}

	logger.Info("retention run finished",
		zap.Int64("processed", result.Processed),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("archived", result.Archived),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (r *retentionService) processRule(ctx context.Context, rule *types.DataRetentionRule) (matched, deleted, archived int64, err error) {
	if !rule.Action.Valid() {
		return 0, 0, 0, errors2.Errorf("invalid action: %s", rule.Action)
	}

	query, args, err := compileConditions(rule.Conditions)
	if err != nil {
		return 0, 0, 0, err
	}

	matched, err = r.tableStore.Count(ctx, rule.Table, query, args...)
	if err != nil {
		return 0, 0, 0, errors2.Wrap(err, "failed to count matches")
	}
	if matched == 0 {
		return 0, 0, 0, nil
	}

	switch rule.Action {
	case types.RetentionActionDelete:
		n, err := r.tableStore.Delete(ctx, rule.Table, query, args...)
		if err != nil {
			return matched, 0, 0, errors2.Wrap(err, "failed to delete rows")
		}
		return matched, n, 0, nil
	case types.RetentionActionArchive:
		n, err := r.archiveRows(ctx, rule, query, args)
		return matched, 0, n, err
	}
	return matched, 0, 0, nil
}

// archiveRows uploads the matching rows and deletes them only after the
// upload is acknowledged. A failed upload leaves the rows untouched;
// timestamped artifact names make a retried upload safe.
func (r *retentionService) archiveRows(ctx context.Context, rule *types.DataRetentionRule, query string, args []interface{}) (int64, error) {
	rows, err := r.tableStore.Select(ctx, rule.Table, query, args...)
	if err != nil {
		return 0, errors2.Wrap(err, "failed to fetch rows")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	archiveCfg, err := r.archiveRepository.FindByOrganization(ctx, rule.OrganizationID)
	if err != nil {
		return 0, errors2.Wrap(err, "no archive configuration for organization")
	}

	doc := types.ArchiveDocument{
		Table:       rule.Table,
		Timestamp:   time.Now().UTC(),
		RecordCount: len(rows),
		Records:     rows,
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, errors2.Wrap(err, "failed to serialize archive")
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, err
	}
	if err := gz.Close(); err != nil {
		return 0, err
	}

	provider, err := r.storageFactory.Create(archiveCfg.Storage)
	if err != nil {
		return 0, errors2.Wrap(err, "failed to create storage provider")
	}

	name := fmt.Sprintf("archive_%s_%s.json", rule.Table, doc.Timestamp.Format(time.RFC3339))
	location, err := provider.Upload(ctx, name, bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		return 0, errors2.Wrap(err, "archive upload failed, rows kept")
	}

	logger.Info("archive uploaded",
		zap.String("rule", rule.Name),
		zap.String("location", location),
		zap.Int("records", len(rows)))

	deleted, err := r.tableStore.Delete(ctx, rule.Table, query, args...)
	if err != nil {
		return 0, errors2.Wrap(err, "archived but failed to delete source rows")
	}
	return deleted, nil
}

// compileConditions turns a rule's condition list into one parameterized
// predicate. older_than is strictly exclusive: a row dated exactly at the
// threshold is kept.
func compileConditions(conditions types.RetentionConditions) (string, []interface{}, error) {
	if len(conditions) == 0 {
		return "", nil, errors2.New("rule has no conditions")
	}

	clauses := make([]string, 0, len(conditions))
	args := make([]interface{}, 0, len(conditions))
	for _, cond := range conditions {
		if !fieldPattern.MatchString(cond.Field) {
			return "", nil, errors2.Errorf("invalid field name: %q", cond.Field)
		}

		switch cond.Operator {
		case types.OperatorOlderThan:
			mult, ok := cond.Unit.Days()
			if !ok {
				return "", nil, errors2.Errorf("invalid interval unit: %s", cond.Unit)
			}
			n, err := toInt(cond.Value)
			if err != nil {
				return "", nil, errors2.Wrapf(err, "older_than value for field %s", cond.Field)
			}
			cutoff := time.Now().UTC().AddDate(0, 0, -n*mult)
			clauses = append(clauses, fmt.Sprintf("%s < ?", cond.Field))
			args = append(args, cutoff)
		case types.OperatorEquals:
			clauses = append(clauses, fmt.Sprintf("%s = ?", cond.Field))
			args = append(args, cond.Value)
		case types.OperatorNotEquals:
			clauses = append(clauses, fmt.Sprintf("%s <> ?", cond.Field))
			args = append(args, cond.Value)
		case types.OperatorIn:
			values, err := toSlice(cond.Value)
			if err != nil {
				return "", nil, errors2.Wrapf(err, "in value for field %s", cond.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s IN ?", cond.Field))
			args = append(args, values)
		case types.OperatorNotIn:
			values, err := toSlice(cond.Value)
			if err != nil {
				return "", nil, errors2.Wrapf(err, "not_in value for field %s", cond.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s NOT IN ?", cond.Field))
			args = append(args, values)
		default:
			return "", nil, errors2.Errorf("unknown operator: %s", cond.Operator)
		}
	}

	return strings.Join(clauses, " AND "), args, nil
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		return strconv.Atoi(n)
	default:
		return 0, errors2.Errorf("not a number: %v", v)
	}
}

func toSlice(v interface{}) ([]interface{}, error) {
	values, ok := v.([]interface{})
	if !ok || len(values) == 0 {
		return nil, errors2.Errorf("expected a non-empty list, got %v", v)
	}
	return values, nil
}
