package landmarkRepository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	contextPkg "github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/context"
)

type LandmarkRunDB struct {
	ID              sql.NullString  `db:"id"`
	RequestID       sql.NullString  `db:"request_id"`
	Status          sql.NullString  `db:"status"`
	ConfThres       sql.NullFloat64 `db:"conf_thres"`
	ImageBytes      sql.NullInt64   `db:"image_bytes"`
	AnnotationCount sql.NullInt64   `db:"annotation_count"`
	BoxCount        sql.NullInt64   `db:"box_count"`
	DurationMS      sql.NullInt64   `db:"duration_ms"`
	ErrorMessage    sql.NullString  `db:"error_message"`
	ArchiveURL      sql.NullString  `db:"archive_url"`
	CreatedAt       time.Time       `db:"created_at"`
}

func (r *runRepository) CreateRun(c context.Context, run entity.LandmarkRun) error {
	requestID := contextPkg.GetRequestID(c)
	argsKV := map[string]interface{}{
		"id":               run.ID,
		"request_id":       run.RequestID,
		"status":           run.Status,
		"conf_thres":       run.ConfThres,
		"image_bytes":      run.ImageBytes,
		"annotation_count": run.AnnotationCount,
		"box_count":        run.BoxCount,
		"duration_ms":      run.DurationMS,
		"error_message":    run.ErrorMessage,
		"archive_url":      run.ArchiveURL,
		"created_at":       time.Now(),
	}

	query, args, err := sqlx.Named(queryCreateRun, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateRun")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating run record")

		return err
	}

	return nil
}

func (r *runRepository) GetRunByID(c context.Context, id string) (entity.LandmarkRun, error) {
	requestID := contextPkg.GetRequestID(c)
	var run LandmarkRunDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetRunByID, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByID named query preparation err")

		return entity.LandmarkRun{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&run); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"run_id":     id,
			}).Warn("GetRunByID no rows found")
			return entity.LandmarkRun{}, landmark.ErrRunNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRunByID execution err")
		return entity.LandmarkRun{}, err
	}

	return r.makeLandmarkRun(run), nil
}

func (r *runRepository) ListRuns(c context.Context, limit int) ([]entity.LandmarkRun, error) {
	requestID := contextPkg.GetRequestID(c)
	var runs []LandmarkRunDB

	argsKV := map[string]interface{}{
		"limit": limit,
	}

	query, args, err := sqlx.Named(queryListRuns, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListRuns named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	if err := r.q.SelectContext(c, &runs, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListRuns execution err")
		return nil, err
	}

	result := make([]entity.LandmarkRun, 0, len(runs))
	for _, run := range runs {
		result = append(result, r.makeLandmarkRun(run))
	}

	return result, nil
}

func (r *runRepository) makeLandmarkRun(run LandmarkRunDB) entity.LandmarkRun {
	return entity.LandmarkRun{
		ID:              run.ID.String,
		RequestID:       run.RequestID.String,
		Status:          run.Status.String,
		ConfThres:       run.ConfThres.Float64,
		ImageBytes:      run.ImageBytes.Int64,
		AnnotationCount: int(run.AnnotationCount.Int64),
		BoxCount:        int(run.BoxCount.Int64),
		DurationMS:      run.DurationMS.Int64,
		ErrorMessage:    run.ErrorMessage.String,
		ArchiveURL:      run.ArchiveURL.String,
		CreatedAt:       run.CreatedAt,
	}
}
