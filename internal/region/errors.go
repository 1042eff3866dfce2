package region

import "errors"

var errShortHeader = errors.New("region: buffer shorter than header size")
