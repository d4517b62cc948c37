package repository

import (
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Masterminds/squirrel"
)

// visibleTo is the only place list queries decide which rows a viewer may
// see: public rows, plus the viewer's own rows when signed in. The table
// alias qualifies the columns for joined queries.
func visibleTo(viewer model.Viewer, table string) squirrel.Sqlizer {
	public := squirrel.Eq{table + ".public": true}
	if !viewer.LoggedIn {
		return public
	}
	return squirrel.Or{public, squirrel.Eq{table + ".user_id": viewer.UserID}}
}
