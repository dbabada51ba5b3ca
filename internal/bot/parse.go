package bot

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"study-planner/internal/calendar"
	"study-planner/internal/service"
)

var (
	errBadID       = errors.New("id must be a positive number")
	errBadHours    = errors.New("hours must be a non-negative number")
	errBadDate     = errors.New("date must look like 2025-11-30")
	errBadTime     = errors.New("time must look like 18:30")
	errBadOffset   = errors.New("offset must be an integer")
	errBadWeekdays = errors.New("unknown weekday")
	errNoWeekdays  = errors.New("no weekdays given")
	errBadFormat   = errors.New("expected: name; hours; [YYYY-MM-DD [HH:MM]]")

	errBadProjectFormat = errors.New("expected: name | description [| course <id>] [| status] [| @user ...]")
	errBadInvitee       = errors.New("invitee must look like @username or @username:admin")
)

var weekdayNames = map[string]int{
	"вс": 0, "воскресенье": 0, "sun": 0, "sunday": 0,
	"пн": 1, "понедельник": 1, "mon": 1, "monday": 1,
	"вт": 2, "вторник": 2, "tue": 2, "tuesday": 2,
	"ср": 3, "среда": 3, "wed": 3, "wednesday": 3,
	"чт": 4, "четверг": 4, "thu": 4, "thursday": 4,
	"пт": 5, "пятница": 5, "fri": 5, "friday": 5,
	"сб": 6, "суббота": 6, "sat": 6, "saturday": 6,
}

var weekdayShort = [7]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || value == 0 {
		return 0, errBadID
	}
	return uint(value), nil
}

// parseIDList accepts ids separated by commas or spaces, dropping duplicates.
func parseIDList(raw string) ([]uint, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, errBadID
	}
	seen := make(map[uint]bool, len(fields))
	ids := make([]uint, 0, len(fields))
	for _, f := range fields {
		id, err := parseID(f)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseOffset(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(strings.TrimPrefix(raw, "+"))
	if err != nil {
		return 0, errBadOffset
	}
	return value, nil
}

func parseHours(raw string) (float64, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return 0, errBadHours
	}
	return value, nil
}

// parseDeadline reads "YYYY-MM-DD" (end of that day) or "YYYY-MM-DD HH:MM" in loc.
func parseDeadline(raw string, loc *time.Location) (time.Time, error) {
	parts := strings.Fields(raw)
	if len(parts) == 0 || len(parts) > 2 {
		return time.Time{}, errBadDate
	}
	day, err := calendar.ParseDate(parts[0], loc)
	if err != nil {
		return time.Time{}, errBadDate
	}
	if len(parts) == 1 {
		return calendar.EndOfDay(day), nil
	}
	clock, err := time.Parse("15:04", parts[1])
	if err != nil {
		return time.Time{}, errBadTime
	}
	return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute), nil
}

// parseNewTaskArgs splits "name; hours; [deadline]".
func parseNewTaskArgs(raw string, loc *time.Location) (service.TaskInput, error) {
	parts := strings.Split(raw, ";")
	if len(parts) < 2 || len(parts) > 3 {
		return service.TaskInput{}, errBadFormat
	}
	name := strings.TrimSpace(parts[0])
	if name == "" {
		return service.TaskInput{}, errBadFormat
	}
	hours, err := parseHours(parts[1])
	if err != nil {
		return service.TaskInput{}, err
	}
	input := service.TaskInput{Name: name, EffortHours: hours}
	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		deadline, err := parseDeadline(parts[2], loc)
		if err != nil {
			return service.TaskInput{}, err
		}
		input.Deadline = &deadline
	}
	return input, nil
}

// parseWeekdaysInput accepts numbers 0..6 or day names separated by commas or spaces.
func parseWeekdaysInput(raw string) ([]int, error) {
	fields := strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
	if len(fields) == 0 {
		return nil, errNoWeekdays
	}
	seen := make(map[int]bool)
	var days []int
	for _, f := range fields {
		day, ok := weekdayNames[f]
		if !ok {
			n, err := strconv.Atoi(f)
			if err != nil || n < 0 || n > 6 {
				return nil, fmt.Errorf("%w: %q", errBadWeekdays, f)
			}
			day = n
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	sort.Ints(days)
	return days, nil
}

func formatWeekdays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 0 && d <= 6 {
			names = append(names, weekdayShort[d])
		}
	}
	return strings.Join(names, ", ")
}

// parsePriority accepts 1..3, or "none"/"-" to clear.
func parsePriority(raw string) (priority int, clear bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "none", "-", "нет", "0":
		return 0, true, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false, service.ErrInvalidPriority
	}
	return value, false, nil
}

// splitCommand cuts the first word off the command arguments.
func splitCommand(args string) (string, string) {
	args = strings.TrimSpace(args)
	head, tail, _ := strings.Cut(args, " ")
	return strings.ToLower(head), strings.TrimSpace(tail)
}

// parseNewProjectArgs reads "name | description" followed by optional parts in
// any order: "курс <id>", a status word and a list of @handles.
func parseNewProjectArgs(args string) (service.ProjectInput, error) {
	var input service.ProjectInput
	parts := strings.Split(args, "|")
	if len(parts) < 2 {
		return input, errBadProjectFormat
	}
	input.Name = strings.TrimSpace(parts[0])
	input.Description = strings.TrimSpace(parts[1])
	if input.Name == "" || input.Description == "" {
		return input, errBadProjectFormat
	}

	for _, part := range parts[2:] {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		switch {
		case part == "":
			continue
		case strings.HasPrefix(part, "@"):
			invitees, err := parseInvitees(part)
			if err != nil {
				return input, err
			}
			input.Invite = append(input.Invite, invitees...)
		case strings.HasPrefix(lower, "курс "), strings.HasPrefix(lower, "course "):
			_, rest, _ := strings.Cut(part, " ")
			id, err := parseID(rest)
			if err != nil {
				return input, err
			}
			input.CourseID = &id
		default:
			input.Status = lower
		}
	}
	return input, nil
}

// parseInvitees splits "@ann @bob:admin, @eve" into invitees.
func parseInvitees(raw string) ([]service.Invitee, error) {
	fields := strings.Fields(strings.ReplaceAll(raw, ",", " "))
	invitees := make([]service.Invitee, 0, len(fields))
	for _, field := range fields {
		if !strings.HasPrefix(field, "@") || len(field) == 1 {
			return nil, errBadInvitee
		}
		name, role, _ := strings.Cut(field[1:], ":")
		if name == "" {
			return nil, errBadInvitee
		}
		invitees = append(invitees, service.Invitee{Username: name, Role: role})
	}
	return invitees, nil
}
