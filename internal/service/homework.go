package service

import (
	"encoding/json"
	"fmt"
	"math"

	appErr "github.com/samims/hwbot/internal/errors"
	"github.com/samims/hwbot/internal/model"
)

const statusChangedTemplate = `Изменился статус проверки работы "%s". %s`

// CheckResponse validates the shape of a homework_statuses payload and
// returns its homeworks, most recent first.
func CheckResponse(payload interface{}) ([]interface{}, error) {
	body, ok := payload.(map[string]interface{})
	if !ok {
		return nil, appErr.NewTypeMismatch("response is not an object: %T", payload)
	}

	homeworks, ok := body[model.KeyHomeworks].([]interface{})
	if !ok {
		return nil, appErr.NewTypeMismatch("%s is not a list: %T", model.KeyHomeworks, body[model.KeyHomeworks])
	}
	return homeworks, nil
}

// CurrentDate reads the server timestamp that becomes the next cursor.
// The payload must already have passed CheckResponse and be decoded with
// json.Decoder.UseNumber, as practicum.Client does.
func CurrentDate(payload interface{}) (int64, error) {
	body, ok := payload.(map[string]interface{})
	if !ok {
		return 0, appErr.NewTypeMismatch("response is not an object: %T", payload)
	}

	raw, ok := body[model.KeyCurrentDate]
	if !ok {
		return 0, appErr.NewMissingKey(model.KeyCurrentDate)
	}

	v, ok := raw.(json.Number)
	if !ok {
		return 0, appErr.NewTypeMismatch("%s is not a number: %T", model.KeyCurrentDate, raw)
	}
	if ts, err := v.Int64(); err == nil {
		return ts, nil
	}
	// 2000.0 is still a whole second
	f, err := v.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, appErr.NewTypeMismatch("%s is not an integer: %s", model.KeyCurrentDate, v)
	}
	return int64(f), nil
}

// ParseHomework extracts the name and status of a single submission record.
// A missing status is left empty; it fails later in the verdict lookup.
func ParseHomework(record interface{}) (model.Homework, error) {
	fields, ok := record.(map[string]interface{})
	if !ok {
		return model.Homework{}, appErr.NewTypeMismatch("homework is not an object: %T", record)
	}

	name, ok := fields[model.KeyHomeworkName]
	if !ok {
		return model.Homework{}, appErr.NewMissingKey(model.KeyHomeworkName)
	}

	hw := model.Homework{Name: fmt.Sprint(name)}
	if status, ok := fields[model.KeyStatus].(string); ok {
		hw.Status = status
	}
	return hw, nil
}

// StatusMessage builds the chat notification for a submission record.
func StatusMessage(record interface{}) (string, error) {
	hw, err := ParseHomework(record)
	if err != nil {
		return "", err
	}

	verdict, ok := model.Verdict(hw.Status)
	if !ok {
		if status, present := record.(map[string]interface{})[model.KeyStatus]; present {
			return "", appErr.NewUnknownStatus(status)
		}
		return "", appErr.NewUnknownStatus(nil)
	}
	return fmt.Sprintf(statusChangedTemplate, hw.Name, verdict), nil
}
