package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/okian/pulse/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMapError(t *testing.T) {
	Convey("Given pgx failures", t, func() {
		Convey("Then nil stays nil", func() {
			So(mapError(nil, model.ErrConflict), ShouldBeNil)
		})

		Convey("Then missing rows are not found", func() {
			err := mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows), model.ErrConflict)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then unique violations take the caller's kind", func() {
			pgErr := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "feedback_assignment_id_ratee_id_key"}
			err := mapError(pgErr, model.ErrDuplicateSubmission)
			So(errors.Is(err, model.ErrDuplicateSubmission), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "feedback_assignment_id_ratee_id_key")
		})

		Convey("Then foreign key violations are not found", func() {
			err := mapError(&pgconn.PgError{Code: codeForeignKeyViolation}, model.ErrConflict)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then check violations are invalid payloads", func() {
			err := mapError(&pgconn.PgError{Code: codeCheckViolation}, model.ErrConflict)
			So(errors.Is(err, model.ErrInvalidPayload), ShouldBeTrue)
		})

		Convey("Then other errors pass through", func() {
			base := errors.New("boom")
			So(mapError(base, model.ErrConflict), ShouldEqual, base)
		})
	})
}
