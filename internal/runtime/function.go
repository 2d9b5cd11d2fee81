package runtime

import (
	log "github.com/sirupsen/logrus"
)

// IgnoreError drops an error that needs no handling, like a failed cache
// write that the next read will simply miss.
func IgnoreError(err error) {
	if err != nil {
		log.Tracef("[runtime] ignored error: %v", err)
	}
}
