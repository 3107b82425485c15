package config

import (
	"fmt"

	"github.com/google/uuid"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key holding the active JWT ID (jti)
// for a student. One entry per student enforces the single-device rule.
func (r *CacheKeyStruct) StudentSessionKey(studentID uuid.UUID) string {
	return fmt.Sprintf("login:%s", studentID)
}

// CertificateSerialKey returns the cache key for an issued certificate serial,
// so re-downloads keep a stable serial number per enrollment.
func (r *CacheKeyStruct) CertificateSerialKey(enrollmentID uuid.UUID) string {
	return fmt.Sprintf("certificate:%s:serial", enrollmentID)
}

var CacheKey = NewCacheKeyStruct()
