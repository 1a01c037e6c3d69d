package web

import (
	"net/http"

	"taskflow/internal/calendar"
	"taskflow/internal/model"
)

type cell struct {
	Date     model.Date   `json:"date"`
	InPeriod bool         `json:"in_period"`
	Today    bool         `json:"today"`
	Tasks    []model.Task `json:"tasks"`
}

type calendarResponse struct {
	View  calendar.View `json:"view"`
	Date  model.Date    `json:"date"`
	Today model.Date    `json:"today"`
	From  model.Date    `json:"from"`
	To    model.Date    `json:"to"`
	Prev  model.Date    `json:"prev"`
	Next  model.Date    `json:"next"`
	Cells []cell        `json:"cells"`
}

// viewParams resolves view, date (default today) and offset (periods to
// step from date).
func (s *Server) viewParams(r *http.Request) (calendar.View, model.Date, error) {
	view, err := calendar.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		return "", model.Date{}, err
	}
	ref, err := dateParam(r, "date", s.today())
	if err != nil {
		return "", model.Date{}, err
	}
	if n := parseIntDefault(r.URL.Query().Get("offset"), 0); n != 0 {
		ref = calendar.Step(view, ref, n)
	}
	return view, ref, nil
}

// handleCalendar returns the grid for a day, week or month view with the
// tasks bucketed into each cell.
//
// GET /api/calendar?view=month&date=2024-03-13&offset=-1
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	view, ref, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	today := s.today()
	idx := calendar.NewIndex(s.svc.Tasks.All())
	days := s.grid.Grid(view, ref)
	from, to := s.grid.Window(view, ref)

	cells := make([]cell, 0, len(days))
	for _, d := range days {
		tasks := idx.On(d.Date)
		if tasks == nil {
			tasks = []model.Task{}
		}
		cells = append(cells, cell{
			Date:     d.Date,
			InPeriod: d.InPeriod,
			Today:    d.Date == today,
			Tasks:    tasks,
		})
	}

	writeJSON(w, http.StatusOK, calendarResponse{
		View:  view,
		Date:  ref,
		Today: today,
		From:  from,
		To:    to,
		Prev:  calendar.Step(view, ref, -1),
		Next:  calendar.Step(view, ref, 1),
		Cells: cells,
	})
}

type agendaResponse struct {
	View   calendar.View          `json:"view"`
	From   model.Date             `json:"from"`
	To     model.Date             `json:"to"`
	Groups []calendar.PeriodGroup `json:"groups"`
}

// handleAgenda returns the tasks of the view window grouped into morning,
// afternoon and evening.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	view, ref, err := s.viewParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	from, to := s.grid.Window(view, ref)
	tasks := calendar.NewIndex(s.svc.Tasks.All()).Between(from, to)

	writeJSON(w, http.StatusOK, agendaResponse{
		View:   view,
		From:   from,
		To:     to,
		Groups: calendar.GroupByPeriod(tasks),
	})
}
