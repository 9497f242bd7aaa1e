package services

import (
	"context"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"liondance/internal/domain"
)

const galleryPrefix = "photoshoots/"

var gallerySegmentRegexp = regexp.MustCompile(`^[A-Za-z0-9 _-]{1,100}$`)

type galleryService struct {
	storage        domain.ObjectStorage
	contextTimeout time.Duration
}

// NewGalleryService lists photoshoots stored as photoshoots/<year>/<shoot>/<photo>.
func NewGalleryService(storage domain.ObjectStorage, timeout time.Duration) domain.GalleryService {
	return &galleryService{storage: storage, contextTimeout: timeout}
}

// ListYears returns gallery years, newest first.
func (s *galleryService) ListYears(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	years, err := s.storage.ListPrefixes(ctx, galleryPrefix)
	if err != nil {
		return nil, dependency("list gallery years", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years, nil
}

func (s *galleryService) ListShoots(ctx context.Context, year string) ([]string, error) {
	if err := validateGallerySegments(map[string]string{"year": year}); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	shoots, err := s.storage.ListPrefixes(ctx, galleryPrefix+year+"/")
	if err != nil {
		return nil, dependency("list gallery shoots", err)
	}
	sort.Strings(shoots)
	return shoots, nil
}

// ListPhotos returns public URLs of the images in one shoot.
func (s *galleryService) ListPhotos(ctx context.Context, year, shoot string) ([]string, error) {
	if err := validateGallerySegments(map[string]string{"year": year, "shoot": shoot}); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	keys, err := s.storage.ListKeys(ctx, galleryPrefix+year+"/"+shoot+"/")
	if err != nil {
		return nil, dependency("list gallery photos", err)
	}
	sort.Strings(keys)
	photos := make([]string, 0, len(keys))
	for _, key := range keys {
		if !imageExtensions[strings.ToLower(path.Ext(key))] {
			continue
		}
		photos = append(photos, s.storage.PublicURL(key))
	}
	return photos, nil
}

func validateGallerySegments(segments map[string]string) error {
	v := domain.NewValidationError()
	for field, value := range segments {
		if !gallerySegmentRegexp.MatchString(value) {
			v.Add(field, "must be letters, digits, spaces, '-' or '_'")
		}
	}
	return v.OrNil()
}
