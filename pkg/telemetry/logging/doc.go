// Package logging builds the structured slog logger used by the truncator.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//	slog.SetDefault(logger)
//
// Components derive child loggers with a "component" attribute, for
// example "retention.purger" or "store".
//
// # Redaction
//
// Passwords in connection strings are masked before a record is written:
//
//   - postgres://ofn:secret@db/ofn → postgres://ofn:***@db/ofn
//   - host=db password=secret → host=db password=***
package logging
