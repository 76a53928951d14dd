package enum

// Bank is a payment bank offered at checkout.
type Bank string

const (
	BankOfBhutan       Bank = "Bank of Bhutan"
	BankBhutanNational Bank = "Bhutan National Bank"
	BankDrukPNB        Bank = "Druk PNB Bank"
)

// Banks lists the banks accepted at checkout in display order.
var Banks = []Bank{BankOfBhutan, BankBhutanNational, BankDrukPNB}

func (b Bank) Valid() bool {
	for _, bank := range Banks {
		if b == bank {
			return true
		}
	}
	return false
}
