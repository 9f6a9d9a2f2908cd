package postgres

import (
	"strconv"
	"strings"
)

// whereBuilder собирает WHERE с позиционными параметрами $1, $2, ...
type whereBuilder struct {
	conds []string
	args  []any
}

// add принимает условие с одним плейсхолдером '?'
func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}
