package models

// InvestorRisk is the client's risk classification.
type InvestorRisk string

const (
	RiskConservative InvestorRisk = "conservative"
	RiskModerate     InvestorRisk = "moderate"
	RiskAggressive   InvestorRisk = "aggressive"
)

// ClientProfile is the authenticated investor's account record.
type ClientProfile struct {
	ID                string       `json:"id"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	Email             string       `json:"email"`
	Phone             string       `json:"phone"`
	InvestorRisk      InvestorRisk `json:"investor_risk"`
	Objectives        string       `json:"objectives"`
	InvestmentHorizon string       `json:"investment_horizon"`
	BrokerName        string       `json:"broker_name,omitempty"`
	BrokerID          string       `json:"broker_id,omitempty"`
	Broker            *Broker      `json:"broker,omitempty"`
}

// Broker is a lightweight reference to the client's broker.
type Broker struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}
