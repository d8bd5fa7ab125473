package identity

import (
	"strconv"
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// WebsiteUUID identifies the website of podcastID. Revision is bumped by every
// reset so a recreated website gets a fresh id while repeated generation keeps
// the current one.
func WebsiteUUID(podcastID string, revision int) uuid.UUID {
	podcastID = strings.TrimSpace(podcastID)
	if podcastID == "" {
		return uuid.Nil
	}
	return UUID("sitebuilder:website:" + podcastID + ":" + strconv.Itoa(revision))
}
