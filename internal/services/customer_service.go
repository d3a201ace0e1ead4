package services

import (
	"cellarbook/internal/domain"
	"cellarbook/internal/repos"
	"cellarbook/internal/validate"
)

type CustomerService struct {
	Customers *repos.CustomerRepo
}

func NewCustomerService(customers *repos.CustomerRepo) *CustomerService {
	return &CustomerService{Customers: customers}
}

type CustomerInput struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Address string `json:"address" form:"address"`
	City    string `json:"city" form:"city"`
	Notes   string `json:"notes" form:"notes"`
}

func (in CustomerInput) toCustomer() (domain.Customer, error) {
	var c domain.Customer
	var ok bool
	if c.Name, ok = validate.Name(in.Name); !ok {
		return c, domain.Invalid("name", "name must be 1-80 characters")
	}
	if in.Email != "" {
		if c.Email, ok = validate.Email(in.Email); !ok {
			return c, domain.Invalid("email", "enter a valid email address")
		}
	}
	if c.Phone, ok = validate.Phone(in.Phone); !ok {
		return c, domain.Invalid("phone", "enter a valid phone number")
	}
	if c.Address, ok = validate.Text(in.Address, 200); !ok {
		return c, domain.Invalid("address", "address is too long")
	}
	if c.City, ok = validate.Text(in.City, 80); !ok {
		return c, domain.Invalid("city", "city is too long")
	}
	if c.Notes, ok = validate.Text(in.Notes, 1000); !ok {
		return c, domain.Invalid("notes", "notes are too long")
	}
	return c, nil
}

func (s *CustomerService) List(ownerID, q string, page, pageSize int) ([]domain.Customer, error) {
	if q != "" {
		var ok bool
		if q, ok = validate.Q(q); !ok {
			return nil, domain.Invalid("q", "enter a valid search")
		}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	return s.Customers.List(ownerID, q, pageSize, (page-1)*pageSize)
}

func (s *CustomerService) Get(ownerID, id string) (domain.Customer, error) {
	return s.Customers.Get(ownerID, id)
}

func (s *CustomerService) Create(ownerID string, in CustomerInput) (domain.Customer, error) {
	c, err := in.toCustomer()
	if err != nil {
		return c, err
	}
	c.OwnerID = ownerID
	if err := s.Customers.Create(&c); err != nil {
		return domain.Customer{}, err
	}
	return c, nil
}

func (s *CustomerService) Update(ownerID, id string, in CustomerInput) (domain.Customer, error) {
	c, err := in.toCustomer()
	if err != nil {
		return c, err
	}
	c.ID, c.OwnerID = id, ownerID
	if err := s.Customers.Update(c); err != nil {
		return domain.Customer{}, err
	}
	return s.Customers.Get(ownerID, id)
}

func (s *CustomerService) Delete(ownerID, id string) error {
	return s.Customers.Delete(ownerID, id)
}
