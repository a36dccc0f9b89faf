package pgcluster

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

// adoKeywords maps ADO.NET keys (lowercased) onto libpq keywords.
var adoKeywords = map[string]string{
	"host":                      "host",
	"server":                    "host",
	"port":                      "port",
	"database":                  "dbname",
	"initial catalog":           "dbname",
	"username":                  "user",
	"user id":                   "user",
	"uid":                       "user",
	"password":                  "password",
	"pwd":                       "password",
	"sslmode":                   "sslmode",
	"ssl mode":                  "sslmode",
	"application name":          "application_name",
	"applicationname":           "application_name",
	"timeout":                   "connect_timeout",
	"connect timeout":           "connect_timeout",
	"connecttimeout":            "connect_timeout",
	"target session attributes": "target_session_attrs",
	"targetsessionattributes":   "target_session_attrs",
}

// normalizeDSN accepts URIs, libpq keyword/value strings and ADO.NET strings
// (Host=db-1,db-2;Port=5432;Database=app;...). ADO.NET strings are rewritten
// as keyword/value; everything else is returned unchanged for pgx to parse.
func normalizeDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)
	if !isADONET(dsn) {
		return dsn, nil
	}

	params := make(map[string]string)
	for _, part := range strings.Split(dsn, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])

		keyword, ok := adoKeywords[key]
		if !ok {
			keyword = strings.ReplaceAll(key, " ", "_")
		}
		if keyword == "port" || keyword == "connect_timeout" {
			if _, err := strconv.Atoi(value); err != nil {
				return "", fmt.Errorf("invalid %s %q in connection string: %w", keyword, value, clusterha.ErrInvalidConfig)
			}
		}
		params[keyword] = value
	}

	keywords := make([]string, 0, len(params))
	for keyword := range params {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)

	pairs := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		pairs = append(pairs, keyword+"="+quoteValue(params[keyword]))
	}
	return strings.Join(pairs, " "), nil
}

func isADONET(dsn string) bool {
	if strings.Contains(dsn, "://") {
		return false
	}
	return strings.Contains(dsn, ";") && strings.Contains(dsn, "=")
}

func quoteValue(value string) string {
	if value != "" && !strings.ContainsAny(value, " '\\") {
		return value
	}
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `'`, `\'`)
	return "'" + value + "'"
}
