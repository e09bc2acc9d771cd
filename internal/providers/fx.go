package providers

import (
	"github.com/smallbiznis/fieldbook/internal/providers/email"
	"github.com/smallbiznis/fieldbook/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
