package storage

import (
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Attachment kinds, used as the first path segment under attachments/.
const (
	KindRespondent = "respondent"
	KindEvaluator  = "evaluator"
	KindActionPlan = "action_plan"
)

// AttachmentKey builds a collision-free blob key for an upload:
// attachments/<kind>/<YYYY>/<MM>/<uuid>.<ext>. The original filename only
// contributes its extension.
func AttachmentKey(kind, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("attachments", kind, now.Format("2006/01"), uuid.NewString()+ext)
}
