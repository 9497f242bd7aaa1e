package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"liondance/internal/domain"
)

// imageSet is the outcome of reconciling an event's images with one edit.
type imageSet struct {
	Next    []domain.Image
	Removed []domain.Image
	Added   []domain.Image
}

// reconcileImages computes the next image list of an event.
//
// Removed ids that are not attached are ignored. New images already attached, matched by id
// or by url, are skipped, so replaying the same edit is a no-op. The display image is
// displayID when given (it must be in the result); otherwise the first newly flagged image,
// otherwise the image that was already the display, otherwise the first image.
func reconcileImages(current []domain.Image, removedIDs []string, added []domain.NewImageInput, displayID string, now time.Time, newID func() string) (imageSet, *domain.ValidationError) {
	var set imageSet

	removed := make(map[string]bool, len(removedIDs))
	for _, id := range removedIDs {
		removed[strings.TrimSpace(id)] = true
	}

	seenIDs := make(map[string]bool)
	seenURLs := make(map[string]bool)
	for _, img := range current {
		if removed[img.ID] {
			set.Removed = append(set.Removed, img)
			continue
		}
		set.Next = append(set.Next, img)
		seenIDs[img.ID] = true
		seenURLs[img.ImageURL] = true
	}

	flagged := ""
	for _, in := range added {
		id := strings.TrimSpace(in.ID)
		url := strings.TrimSpace(in.ImageURL)
		if (id != "" && seenIDs[id]) || seenURLs[url] {
			continue
		}
		if id == "" {
			id = newID()
		}
		img := domain.Image{ID: id, CreatedAt: now, UpdatedAt: now, ImageURL: url}
		if in.IsDisplay && flagged == "" {
			flagged = id
		}
		set.Next = append(set.Next, img)
		set.Added = append(set.Added, img)
		seenIDs[id] = true
		seenURLs[url] = true
	}

	chosen := strings.TrimSpace(displayID)
	if chosen != "" {
		if !seenIDs[chosen] {
			v := domain.NewValidationError()
			v.Add("new_display_image_id", "does not refer to an image of this event")
			return imageSet{}, v
		}
	} else if flagged != "" {
		chosen = flagged
	} else {
		for _, img := range set.Next {
			if img.IsDisplay {
				chosen = img.ID
				break
			}
		}
		if chosen == "" && len(set.Next) > 0 {
			chosen = set.Next[0].ID
		}
	}

	for i := range set.Next {
		want := set.Next[i].ID == chosen
		if set.Next[i].IsDisplay != want {
			set.Next[i].IsDisplay = want
			set.Next[i].UpdatedAt = now
		}
	}
	// Added shares ids with Next; copy the final display flag across.
	for i := range set.Added {
		set.Added[i].IsDisplay = set.Added[i].ID == chosen
	}
	return set, nil
}

// imageIDTaken turns a storage-level image id collision into a validation error on the
// input that supplied the id. It returns nil for any other error.
func imageIDTaken(err error, field string, inputs []domain.NewImageInput) error {
	var taken *domain.ImageIDTakenError
	if !errors.As(err, &taken) {
		return nil
	}
	v := domain.NewValidationError()
	for i, in := range inputs {
		if strings.EqualFold(strings.TrimSpace(in.ID), taken.ID) {
			v.Add(fmt.Sprintf("%s[%d].id", field, i), "is already used by another image")
			return v
		}
	}
	v.Add(field, "contains an image id that is already in use")
	return v
}
