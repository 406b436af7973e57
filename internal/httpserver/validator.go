package httpserver

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	nationalIDLength     = 15
	nationalIDPrefix     = "784"
	nationalIDMinYear    = 1900
	nationalIDTag        = "national_id"
	nationalIDYearOffset = 3
	nationalIDYearDigits = 4
)

// registerValidators installs the custom binding rules on gin's validator
// engine. Registration is idempotent.
func registerValidators() {
	engine, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = engine.RegisterValidation(nationalIDTag, validNationalID)
}

// validNationalID accepts Emirates-ID style identifiers: 15 digits starting
// with 784 whose second segment is a plausible birth year.
func validNationalID(level validator.FieldLevel) bool {
	value := strings.TrimSpace(level.Field().String())
	if len(value) != nationalIDLength {
		return false
	}
	for _, char := range value {
		if char < '0' || char > '9' {
			return false
		}
	}
	if !strings.HasPrefix(value, nationalIDPrefix) {
		return false
	}
	yearDigits := value[nationalIDYearOffset : nationalIDYearOffset+nationalIDYearDigits]
	year, err := strconv.Atoi(yearDigits)
	if err != nil {
		return false
	}
	return year >= nationalIDMinYear && year <= time.Now().UTC().Year()
}
