package jobstream

var DecodeMessage = decodeMessage
