package domain

import (
	appErrors "modnotifier/internal/errors"
)

func invalidModuleError(reason string, err error) error {
	return appErrors.New(appErrors.CodeInvalidModuleData, reason, err)
}

func invalidUserError(reason string) error {
	return appErrors.New(appErrors.CodeInvalidUserData, reason, nil)
}
