package cookies

import "errors"

var (
	// ErrEmptyName indicates a cookie write without a name.
	ErrEmptyName = errors.New("cookies.empty_name")
	// ErrUnsupportedDialect indicates that no GORM dialector is available for the scheme.
	ErrUnsupportedDialect = errors.New("cookie_store.unsupported_dialect")

	errEmptyDatabaseURL    = errors.New("cookie_store.empty_database_url")
	errSQLiteEmptyPath     = errors.New("cookie_store.sqlite.empty_path")
	errSQLiteInvalidURL    = errors.New("cookie_store.sqlite.invalid_url")
	errUnsupportedNoScheme = errors.New("cookie_store.unsupported_no_scheme")
)
