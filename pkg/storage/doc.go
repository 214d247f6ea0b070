// Package storage persists scrape output: export files for a result and
// downloaded media files.
//
// Every file is written to a temporary name and renamed into place, so a
// reader never sees a partial export or video.
package storage
