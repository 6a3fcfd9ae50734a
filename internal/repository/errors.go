package repository

import "gorm.io/gorm"

// ErrRecordNotFound is returned by every backend when a lookup matches nothing.
var ErrRecordNotFound = gorm.ErrRecordNotFound
