package landmarkRepository

const (
	queryCreateRun = `
		INSERT INTO landmark_runs (
			id,
			request_id,
			status,
			conf_thres,
			image_bytes,
			annotation_count,
			box_count,
			duration_ms,
			error_message,
			archive_url,
			created_at
		) VALUES (
			:id,
			:request_id,
			:status,
			:conf_thres,
			:image_bytes,
			:annotation_count,
			:box_count,
			:duration_ms,
			:error_message,
			:archive_url,
			:created_at
		)
	`

	queryGetRunByID = `
		SELECT
			id,
			request_id,
			status,
			conf_thres,
			image_bytes,
			annotation_count,
			box_count,
			duration_ms,
			error_message,
			archive_url,
			created_at
		FROM landmark_runs
		WHERE id = :id
	`

	queryListRuns = `
		SELECT
			id,
			request_id,
			status,
			conf_thres,
			image_bytes,
			annotation_count,
			box_count,
			duration_ms,
			error_message,
			archive_url,
			created_at
		FROM landmark_runs
		ORDER BY created_at DESC
		LIMIT :limit
	`
)
