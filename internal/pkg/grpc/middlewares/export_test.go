package middlewares

var ServerCodeToLevel = serverCodeToLevel
