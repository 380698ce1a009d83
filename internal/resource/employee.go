package resource

import "net/url"

type Employee struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Position   string  `json:"position"`
	Department string  `json:"department"`
	Salary     float64 `json:"salary"`
}

var EmployeeSchema = Schema[Employee]{
	Table:   "employees",
	Columns: []string{"name", "email", "position", "department", "salary"},
	Values: func(e Employee) []any {
		return []any{e.Name, e.Email, e.Position, e.Department, e.Salary}
	},
	Fields: func(e *Employee) []any {
		return []any{&e.ID, &e.Name, &e.Email, &e.Position, &e.Department, &e.Salary}
	},
	ID:    func(e Employee) int64 { return e.ID },
	SetID: func(e *Employee, id int64) { e.ID = id },
}

// EmployeeFromForm reads the employee form fields. An empty salary is 0.
func EmployeeFromForm(form url.Values) (Employee, error) {
	salary, err := parseAmount(form.Get("salary"), "salary")
	if err != nil {
		return Employee{}, err
	}
	return Employee{
		Name:       form.Get("name"),
		Email:      form.Get("email"),
		Position:   form.Get("position"),
		Department: form.Get("department"),
		Salary:     salary,
	}, nil
}
