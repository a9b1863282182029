package outbox

var ClipUTF8ForTest = clipUTF8
