package utils

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// PathID reads a positive numeric route variable.
func PathID(r *http.Request, name string) (uint, bool) {
	n, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// QueryInt reads an integer query parameter, returning def when absent or malformed.
func QueryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func QueryBool(r *http.Request, name string, def bool) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
